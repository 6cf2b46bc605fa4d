package render

// RunStyle captures the inline run formatting of one paragraph kind.
type RunStyle struct {
	Bold   bool
	Italic bool
	Size   int
	Color  string
}

const (
	HeadingColor = "1F2937"
	NameColor    = "111111"
	HeadingSize  = 24
	NameSize     = 32
	BodySize     = 21
)

const (
	styleName    = "name"
	styleHeading = "sectionHeading"
	styleBullet  = "bullet"
	styleBody    = "body"
)

// StyleMap centralizes the formatting applied to each paragraph kind.
var StyleMap = map[string]RunStyle{
	styleName: {
		Bold:  true,
		Size:  NameSize,
		Color: NameColor,
	},
	styleHeading: {
		Bold:  true,
		Size:  HeadingSize,
		Color: HeadingColor,
	},
	styleBullet: {
		Size: BodySize,
	},
	styleBody: {
		Size: BodySize,
	},
}
