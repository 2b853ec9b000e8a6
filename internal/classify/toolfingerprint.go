// Package classify implements the two pure-function fingerprint
// classifiers every format analyzer in DocScan reuses: ToolFingerprint
// turns a raw Producer/Creator/Application string into a structured
// manufacturer/product/version record, and FontFingerprint turns a raw
// embedded font name into a beautified name plus a license/technology
// guess. Both are ordered signature chains, ported from
// Guessing::programToXML and Guessing::fontToXML: first matching
// signature wins, and a handful of post-processing steps (operating
// system auto-guess, OpenOffice-family version extraction) always run
// afterward regardless of which signature fired.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// ToolFingerprint is the structured result of classifying a tool/producer
// string. Fields are empty when the classifier could not determine them.
type ToolFingerprint struct {
	Raw          string
	Manufacturer string
	Product      string
	Version      string
	Subversion   string
	BasedOn      string
	License      string
	OpSys        string
}

var versionGeneric = regexp.MustCompile(`\b\d+(\.\d+)+[a-z]*\b`)
var versionStrict = regexp.MustCompile(`\b\d+(\.\d+)+\b`)

func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

type signature struct {
	match func(text string) bool
	apply func(text string, tf *ToolFingerprint)
}

// applyCSVersion resolves Adobe's "CSn" marketing names to dotted version
// numbers, per product family: the offset differs between InDesign
// ("CS" = 3.0, CSn = n+2) and Illustrator ("CS" = 11.0, CSn = n+10).
func applyCSVersion(text string, tf *ToolFingerprint, bareVersion, csN string) {
	csRe := regexp.MustCompile(`(?i)\bCS(\d*)\b`)
	loc := csRe.FindStringSubmatch(text)
	if loc == nil {
		return
	}
	if loc[1] == "" {
		tf.Version = bareVersion
		return
	}
	n, err := strconv.ParseFloat(loc[1], 64)
	if err != nil || n <= 1 {
		return
	}
	offset, _ := strconv.ParseFloat(csN, 64)
	tf.Version = strconv.FormatFloat(n+offset, 'f', 1, 64)
}

var toolSignatures = []signature{
	{
		match: func(t string) bool { return strings.Contains(t, "dvips") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "radicaleye"
			tf.Version = firstMatch(regexp.MustCompile(`\b\d+\.\d+[a-z]*\b`), t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "ghostscript") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "artifex"
			tf.Product = "ghostscript"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "cairo ") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "cairo"
			tf.Product = "cairo"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdftex") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "pdftex"
			tf.Product = "pdftex"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "latex") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "latex"
			tf.Product = "latex"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "dvipdfm") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "dvipdfm"
			tf.Product = "dvipdfm"
			tf.Version = firstMatch(versionGeneric, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "koffice") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "kde"
			tf.Product = "koffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "calligra") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "kde"
			tf.Product = "calligra"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "abiword") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "abisource"
			tf.Product = "abiword"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "office_one") },
		apply: func(t string, tf *ToolFingerprint) { tf.Product = "office_one"; tf.BasedOn = "openoffice" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "infraoffice") },
		apply: func(t string, tf *ToolFingerprint) { tf.Product = "infraoffice"; tf.BasedOn = "openoffice" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "redoffice") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "china"
			tf.Product = "redoffice"
			tf.BasedOn = "openoffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "sun_odf_plugin") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "oracle"
			tf.Product = "odfplugin"
			tf.BasedOn = "openoffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "libreoffice") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "tdf"
			tf.Product = "libreoffice"
			tf.BasedOn = "openoffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "lotus symphony") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "ibm"
			tf.Product = "lotus-symphony"
			tf.BasedOn = "openoffice"
			if m := regexp.MustCompile(`(?i)symphony (\d+(\.\d+)*)`).FindStringSubmatch(t); m != nil {
				tf.Version = m[1]
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "staroffice") && strings.Contains(t, "openoffice") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "oracle"
			tf.BasedOn = "openoffice"
			tf.Product = "staroffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "broffice") },
		apply: func(t string, tf *ToolFingerprint) { tf.Product = "broffice"; tf.BasedOn = "openoffice" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "neooffice") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "planamesa"
			tf.Product = "neooffice"
			tf.BasedOn = "openoffice"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "openoffice") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "oracle"; tf.Product = "openoffice" },
	},
	{
		match: func(t string) bool { return t == "writer" || t == "calc" || t == "impress" },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "oracle;tdf"
			tf.Product = "openoffice;libreoffice"
			tf.BasedOn = "openoffice"
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "pdfscanlib ") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "kodak?"
			tf.Product = "pdfscanlib"
			if m := regexp.MustCompile(`v(\d+(\.\d+)+)\b`).FindStringSubmatch(t); m != nil {
				tf.Version = m[1]
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "framemaker") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "framemaker"
			tf.Version = firstMatch(versionGeneric, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "distiller") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "distiller"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "pdflib plop") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "pdflib"
			tf.Product = "plop"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "pdflib") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "pdflib"
			tf.Product = "pdflib"
			tf.Version = firstMatch(regexp.MustCompile(`\b\d+(\.[0-9p]+)+\b`), t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdf library") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "pdflibrary"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdfwriter") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "pdfwriter"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "easypdf") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "bcl"
			tf.Product = "easypdf"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdfmaker") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "pdfmaker"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "itext ") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "itext"
			tf.Product = "itext"
			m := regexp.MustCompile(`\b((\d+)(\.\d+)+)\b`).FindStringSubmatch(t)
			if m == nil {
				return
			}
			tf.Version = m[1]
			major, err := strconv.Atoi(m[2])
			if err != nil {
				return
			}
			if major <= 4 {
				tf.License = "MPL;LGPL"
			} else {
				tf.License = "commercial;AGPLv3"
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdfout v") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "verypdf"
			tf.Product = "docconverter"
			if m := regexp.MustCompile(`v(\d+(\.\d+)+)\b`).FindStringSubmatch(t); m != nil {
				tf.Version = m[1]
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "jaws pdf creator") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "jaws"
			tf.Product = "pdfcreator"
			if m := regexp.MustCompile(`v(\d+(\.\d+)+)\b`).FindStringSubmatch(t); m != nil {
				tf.Version = m[1]
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "abcpdf") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "websupergoo"; tf.Product = "abcpdf" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "primopdf") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "nitro"
			tf.Product = "primopdf"
			tf.BasedOn = "nitropro"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "nitro") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "nitro"; tf.Product = "nitropro" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdffactory") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "softwarelabs"
			tf.Product = "pdffactory"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "indesign") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "indesign"
			if v := firstMatch(versionStrict, t); v != "" {
				tf.Version = v
			} else {
				applyCSVersion(t, tf, "3.0", "2")
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "illustrator") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "illustrator"
			if v := firstMatch(versionStrict, t); v != "" {
				tf.Version = v
			} else {
				applyCSVersion(t, tf, "11.0", "10")
			}
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pagemaker") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "pagemaker"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "acrobat capture") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "acrobatcapture"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "acrobat pro") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "acrobatpro"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "acrobat") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "acrobat"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "livecycle") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			re := regexp.MustCompile(`\b\d+(\.\d+)+[a-z]?\b`)
			loc := re.FindStringIndex(t)
			version := re.FindString(t)
			tf.Version = version
			cut := 1024
			if loc != nil && loc[0] > 0 {
				cut = loc[0]
			}
			if cut > len(t) {
				cut = len(t)
			}
			product := strings.ReplaceAll(t[:cut], "adobe", "")
			product = strings.ReplaceAll(product, version, "")
			product = strings.ReplaceAll(product, " ", "")
			tf.Product = product + "?"
		},
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "adobe photoshop elements") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "adobe"; tf.Product = "photoshopelements" },
	},
	{
		match: func(t string) bool { return strings.HasPrefix(t, "adobe photoshop") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			tf.Product = "photoshop"
			tf.Version = firstMatch(regexp.MustCompile(`(?i)\bCS|(CS)?\d+(\.\d+)+\b`), t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "adobe") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "adobe"
			version := firstMatch(versionStrict, t)
			tf.Version = version
			product := strings.ReplaceAll(t, "adobe", "")
			product = strings.ReplaceAll(product, version, "")
			product = strings.ReplaceAll(product, " ", "")
			tf.Product = product + "?"
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "keynote") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "apple"
			tf.Product = "keynote"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pages") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "apple"; tf.Product = "pages" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "quartz") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "apple"
			tf.Product = "quartz"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool {
			return strings.Contains(t, "pscript5.dll") || strings.Contains(t, "pscript.dll")
		},
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "microsoft"
			tf.Product = "pscript"
			tf.OpSys = "windows"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "quarkxpress") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "quark"
			tf.Product = "xpress"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdfcreator") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "pdfforge"
			tf.Product = "pdfcreator"
			tf.OpSys = "windows"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "pdf printer") },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "bullzip"; tf.Product = "pdfprinter" },
	},
	{
		match: func(t string) bool { return strings.Contains(t, "aspose") && strings.Contains(t, "words") },
		apply: func(t string, tf *ToolFingerprint) {
			tf.Manufacturer = "aspose"
			tf.Product = "aspose.words"
			tf.Version = firstMatch(versionStrict, t)
		},
	},
	{
		match: func(t string) bool { return strings.Contains(t, "google") && t == "google" },
		apply: func(t string, tf *ToolFingerprint) { tf.Manufacturer = "google"; tf.Product = "docs" },
	},
}

var oooVersionSignificantBranch = map[string]bool{
	"office_one": true, "infraoffice": true, "aksharnaveen": true, "redoffice": true,
	"sun_odf_plugin": true, "libreoffice": true, "openoffice": true, "lotus-symphony": true,
}

var oooVersion1 = regexp.MustCompile(`(?i)[a-z]/(\d(\.\d+)+)(_beta|pre)?[$a-z]`)
var oooVersion2 = regexp.MustCompile(`(?i)\b(\d+(\.\d+)+)\b`)

var microsoftProductsRe = regexp.MustCompile(`(?i)powerpoint|excel|word|outlook|visio|access`)
var microsoftVersionRe = regexp.MustCompile(`(?i)\b(starter )?(20[01][0-9]|1?[0-9]\.[0-9]+|9[5-9])\b`)

// ClassifyTool runs the ordered signature chain against program, then
// applies the OpenOffice-family version/opsys refinement and the generic
// operating-system auto-guess that run regardless of which signature, if
// any, fired (mirrors Guessing::programToXML's post-processing block).
func ClassifyTool(program string) ToolFingerprint {
	tf := ToolFingerprint{Raw: program}
	text := strings.ToLower(program)

	matched := false
	for _, sig := range toolSignatures {
		if sig.match(text) {
			sig.apply(text, &tf)
			matched = true
			break
		}
	}

	if !matched && !strings.Contains(text, "words") {
		if m := microsoftProductsRe.FindString(text); m != "" {
			tf.Manufacturer = "microsoft"
			tf.Product = m
			if vm := microsoftVersionRe.FindStringSubmatch(text); vm != nil {
				if tf.Version == "" {
					tf.Version = vm[2]
				}
				if tf.Subversion == "" && vm[1] != "" {
					tf.Subversion = vm[1]
				}
			}
			if strings.Contains(text, "macintosh") || strings.Contains(text, "mac os x") {
				tf.OpSys = "macosx"
			} else {
				tf.OpSys = "windows?"
			}
		}
	}

	if tf.BasedOn == "openoffice" || oooVersionSignificantBranch[tf.Product] {
		if m := oooVersion1.FindStringSubmatch(text); m != nil {
			tf.Version = m[1]
		} else if m := oooVersion2.FindStringSubmatch(text); m != nil {
			tf.Version = m[1]
		}

		switch {
		case strings.Contains(text, "unix"):
			tf.OpSys = "generic-unix"
		case strings.Contains(text, "linux"):
			tf.OpSys = "linux"
		case strings.Contains(text, "win32"):
			tf.OpSys = "windows"
		case strings.Contains(text, "solaris"):
			tf.OpSys = "solaris"
		case strings.Contains(text, "freebsd"):
			tf.OpSys = "bsd"
		}
	}

	if tf.Manufacturer == "" && (strings.Contains(text, "adobe") || strings.Contains(text, "acrobat")) {
		tf.Manufacturer = "adobe"
	}

	if tf.OpSys == "" {
		switch {
		case strings.Contains(text, "macint"):
			tf.OpSys = "macosx"
		case strings.Contains(text, "solaris"):
			tf.OpSys = "solaris"
		case strings.Contains(text, "linux"):
			tf.OpSys = "linux"
		case strings.Contains(text, "windows"), strings.Contains(text, "win32"), strings.Contains(text, "win64"):
			tf.OpSys = "windows"
		}
	}

	return tf
}

// ToXMLAttrs renders a ToolFingerprint as the attribute map
// internal/xmlutil.FormatMap expects, in the fixed order the original
// <tool> element always emits its attributes.
func (tf ToolFingerprint) ToXMLAttrs() (map[string]string, []string) {
	order := []string{"manufacturer", "product", "version", "subversion", "based-on", "license", "opsys", ""}
	attrs := map[string]string{"": tf.Raw}
	if tf.Manufacturer != "" {
		attrs["manufacturer"] = tf.Manufacturer
	}
	if tf.Product != "" {
		attrs["product"] = tf.Product
	}
	if tf.Version != "" {
		attrs["version"] = tf.Version
	}
	if tf.Subversion != "" {
		attrs["subversion"] = tf.Subversion
	}
	if tf.BasedOn != "" {
		attrs["based-on"] = tf.BasedOn
	}
	if tf.License != "" {
		attrs["license"] = tf.License
	}
	if tf.OpSys != "" {
		attrs["opsys"] = tf.OpSys
	}
	return attrs, order
}
