package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"path"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator renders message templates for one language and formats money
// for the configured currency.
type Translator struct {
	translations map[string]string
	printer      *message.Printer
	unit         currency.Unit
	scale        int
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode, currencyCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	tag, err := language.Parse(langCode)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", langCode, err)
	}
	return newTranslatorFromBytes(data, tag, currencyCode)
}

func newTranslatorFromBytes(data []byte, tag language.Tag, currencyCode string) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return &Translator{
		translations: translations,
		printer:      message.NewPrinter(tag),
		unit:         unit,
		scale:        scale,
	}, nil
}

// T returns the template for key filled with args, or key itself when the
// template is missing.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return t.printer.Sprintf(format, args...)
	}
	return format
}

// Money formats an amount given in minor units, e.g. 85000 -> "INR 850.00".
func (t *Translator) Money(minor int64) string {
	major := float64(minor) / math.Pow10(t.scale)
	return t.printer.Sprint(currency.ISO(t.unit.Amount(major)))
}
