package classify

import (
	"regexp"
	"strings"

	"docscan/internal/xmlutil"
)

// FontFingerprint is the structured result of classifying an embedded
// font's raw PostScript name plus its PDF-reported subtype.
type FontFingerprint struct {
	Name          string
	Beautified    string
	LicenseType   string // "open", "proprietary", "unknown"
	LicenseName   string
	Technology    string // "truetype", "type1", "type3"
}

type fontLicenseRule struct {
	match func(name string) bool
	typ   string
	name  string
}

var texFontRe = regexp.MustCompile(`^(CM|SF|MS)[A-Z]+[0-9]+$`)

var fontLicenseRules = []fontLicenseRule{
	{func(n string) bool { return strings.Contains(n, "Libertine") }, "open", "SIL Open Font License;GNU General Public License"},
	{func(n string) bool { return strings.Contains(n, "Nimbus") }, "open", "GNU General Public License;Aladdin Free Public License"},
	{func(n string) bool { return strings.HasPrefix(n, "URWPalladio") }, "open", ""},
	{func(n string) bool { return strings.Contains(n, "Liberation") }, "open", ""},
	{func(n string) bool { return strings.Contains(n, "DejaVu") }, "open", ""},
	{func(n string) bool { return strings.Contains(n, "Ubuntu") }, "open", "Ubuntu Font Licence"},
	{func(n string) bool { return strings.Contains(n, "Gentium") }, "open", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "FreeSans") || strings.HasPrefix(n, "FreeSerif") || strings.HasPrefix(n, "FreeMono")
	}, "open", ""},
	{func(n string) bool { return strings.Contains(n, "Vera") || strings.Contains(n, "Bera") }, "open", ""},
	{func(n string) bool { return strings.Contains(n, "Computer Modern") }, "open", "SIL Open Font License"},
	{func(n string) bool { return strings.HasPrefix(n, "wasy") || texFontRe.MatchString(n) }, "open", "SIL Open Font License"},
	{func(n string) bool { return strings.Contains(n, "Marvosym") }, "open", "SIL Open Font License"},
	{func(n string) bool { return strings.Contains(n, "OpenSymbol") }, "open", "LGPLv3?"},
	{func(n string) bool { return strings.HasPrefix(n, "MnSymbol") }, "open", "PD"},
	{func(n string) bool { return strings.HasPrefix(n, "Antenna") }, "proprietary", ""},
	{func(n string) bool { return strings.HasPrefix(n, "Gotham") || strings.HasPrefix(n, "NewLibrisSerif") }, "proprietary", ""},
	{func(n string) bool { return strings.HasPrefix(n, "Zapf") || strings.HasPrefix(n, "Frutiger") }, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "Arial") || strings.HasPrefix(n, "Verdana") || strings.HasPrefix(n, "TimesNewRoman") ||
			strings.HasPrefix(n, "CourierNew") || strings.HasPrefix(n, "Georgia") || n == "Symbol"
	}, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "Lucinda") || strings.HasPrefix(n, "Trebuchet") || strings.HasPrefix(n, "Franklin Gothic") ||
			strings.HasPrefix(n, "Century Schoolbook") || strings.HasPrefix(n, "CenturySchoolbook")
	}, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "Calibri") || strings.HasPrefix(n, "Cambria") || strings.HasPrefix(n, "Constantia") ||
			strings.HasPrefix(n, "Candara") || strings.HasPrefix(n, "Corbel") || strings.HasPrefix(n, "Consolas")
	}, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "Futura") || strings.HasPrefix(n, "NewCenturySchlbk") || strings.HasPrefix(n, "TradeGothic") ||
			strings.HasPrefix(n, "Univers") || strings.Contains(n, "Palatino")
	}, "proprietary", ""},
	{func(n string) bool {
		return strings.Contains(n, "Monospace821") || strings.Contains(n, "Swiss721") || strings.Contains(n, "Dutch801")
	}, "proprietary", ""},
	{func(n string) bool { return strings.Contains(n, "Helvetica") && strings.Contains(n, "Neue") }, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "Times") || strings.HasPrefix(n, "Tahoma") || strings.Contains(n, "Helvetica") || strings.Contains(n, "Wingdings")
	}, "proprietary", ""},
	{func(n string) bool { return strings.HasPrefix(n, "SymbolMT") }, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "CenturyGothic") || strings.HasPrefix(n, "Bembo") || strings.HasPrefix(n, "GillSans") ||
			strings.HasPrefix(n, "Rockwell") || strings.HasPrefix(n, "Lucida") || strings.HasPrefix(n, "Perpetua")
	}, "proprietary", ""},
	{func(n string) bool {
		return strings.HasPrefix(n, "ACaslon") || strings.Contains(n, "EuroSans") || strings.HasPrefix(n, "Minion") || strings.HasPrefix(n, "Myriad")
	}, "proprietary", ""},
	{func(n string) bool { return strings.HasPrefix(n, "DIN") }, "proprietary", ""},
	{func(n string) bool {
		return strings.Contains(n, "Officina") || strings.Contains(n, "Kabel") || strings.Contains(n, "Cheltenham")
	}, "proprietary", ""},
	{func(n string) bool { return strings.HasPrefix(n, "Bookman Old Style") || strings.HasPrefix(n, "Gill Sans") }, "proprietary", ""},
}

var beautifySuffixes = []string{
	"MT", "PS", "BT", "Bk",
	"-Normal", "-Book", "-Md", "-Medium", "-Caps", "-Roman", "-Roma", "-Regular", "-Regu", "-DisplayRegular",
	"-Demi", "-Blk", "-Black", "Bla", "-Ultra", "-Extra", "-ExtraBold", "Obl", "-Hv", "-HvIt", "-Heavy", "-BoldIt",
	"-BoldItal", "-BdIt", "-Bd", "-It",
	"-Condensed", "-Light", "-Lt", "-Slant", "-LightCond", "Lig", "-Narrow",
	"Ext", "SWA", "-Identity-H", "-DTC",
}

var beautifyRegexps = []*regexp.Regexp{
	regexp.MustCompile(`[,-]?(Ital(ic)?|Oblique|Black|Bold)$`),
	regexp.MustCompile(`[,-](BdCn|SC)[0-9]*$`),
	regexp.MustCompile(`[,-][A-Z][0-9]$`),
	regexp.MustCompile(`_[0-9]+$`),
	regexp.MustCompile(`[+][A-Z]+$`),
	regexp.MustCompile(`[*][0-9]+$`),
}

var beautifyTeXFonts = regexp.MustCompile(`^((CM|SF|MS)[A-Z]+|wasy)([0-9]+)$`)

// pdfSubsetTag matches the six-uppercase-letter subset prefix a PDF
// producer prepends to a subsetted embedded font's BaseFont name (ISO
// 32000-1 §9.6.4), e.g. "ABCDEF+TimesNewRomanPS-BoldMT".
var pdfSubsetTag = regexp.MustCompile(`^[A-Z]{6}\+`)

// beautify iteratively strips the PDF subset-tag prefix, if present, and
// known subset-tag/style suffixes from a raw PostScript font name until a
// fixed point is reached, mirroring Guessing::fontToXML's while-loop.
func beautify(name string) string {
	current := pdfSubsetTag.ReplaceAllString(name, "")
	for {
		before := current
		for _, suffix := range beautifySuffixes {
			if strings.HasSuffix(current, suffix) {
				current = current[:len(current)-len(suffix)]
			}
		}
		for _, re := range beautifyRegexps {
			current = re.ReplaceAllString(current, "")
		}
		current = beautifyTeXFonts.ReplaceAllString(current, "$1")
		if current == before {
			return current
		}
	}
}

// ClassifyFont beautifies fontName, classifies its license, and keys its
// technology off typeName ("TrueType"/"Type1"/"Type3" as PDF reports it).
func ClassifyFont(fontName, typeName string) FontFingerprint {
	ff := FontFingerprint{Name: fontName, LicenseType: "unknown"}

	for _, rule := range fontLicenseRules {
		if rule.match(fontName) {
			ff.LicenseType = rule.typ
			ff.LicenseName = rule.name
			break
		}
	}

	ff.Beautified = beautify(fontName)

	lowerType := strings.ToLower(typeName)
	switch {
	case strings.Contains(lowerType, "truetype"):
		ff.Technology = "truetype"
	case strings.Contains(lowerType, "type1"):
		ff.Technology = "type1"
	case strings.Contains(lowerType, "type3"):
		ff.Technology = "type3"
	}

	return ff
}

// ToXMLFragment renders a FontFingerprint the way Guessing::fontToXML
// concatenates its four sub-elements: name, beautified, technology,
// license — each via the same FormatMap self-closing-or-text rule the
// ToolFingerprint uses.
func (ff FontFingerprint) ToXMLFragment() string {
	var sb strings.Builder
	sb.WriteString(xmlutil.FormatMap("name", map[string]string{"": ff.Name}, []string{""}))
	sb.WriteString(xmlutil.FormatMap("beautified", map[string]string{"": ff.Beautified}, []string{""}))
	if ff.Technology != "" {
		sb.WriteString(xmlutil.FormatMap("technology", map[string]string{"type": ff.Technology}, []string{"type"}))
	}
	licenseAttrs := map[string]string{}
	if ff.LicenseType != "" {
		licenseAttrs["type"] = ff.LicenseType
	}
	if ff.LicenseName != "" {
		licenseAttrs["name"] = ff.LicenseName
	}
	if len(licenseAttrs) > 0 {
		sb.WriteString(xmlutil.FormatMap("license", licenseAttrs, []string{"type", "name"}))
	}
	return sb.String()
}
