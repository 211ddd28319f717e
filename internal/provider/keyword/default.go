package keyword

// DefaultLexicon returns the built-in phrase lists for civic infrastructure
// reports (roads, water, power, public structures). Phrases match whole
// words, so inflections are listed explicitly.
func DefaultLexicon() Lexicon {
	return Lexicon{
		High: []string{
			"collapse", "collapsed", "collapsing", "live wire", "exposed wire",
			"exposed wires", "electrocuted", "electrocution", "gas leak", "flood",
			"flooded", "flooding", "sinkhole", "fire", "explosion", "burst main",
			"sewage overflow", "bridge crack", "injured", "injury", "accident",
			"blocking the road", "fallen tree on", "open manhole",
		},
		Medium: []string{
			"pothole", "potholes", "broken streetlight", "street light not working",
			"fire hydrant", "leak", "leaks", "leaking", "water logging", "waterlogging",
			"blocked drain", "clogged", "damaged", "broken", "crack", "cracked",
			"cracks", "overflowing", "traffic signal", "no water supply", "power cut",
			"outage",
		},
		Low: []string{
			"garbage", "litter", "graffiti", "faded", "paint", "overgrown",
			"dirty", "minor", "cosmetic", "noise", "stray",
		},
	}
}
