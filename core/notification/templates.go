package notification

import (
	"embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.txt"))

// Render executes the named message template (file name without ext) and trims the result.
func Render(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, name+".txt", data); err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}
	return strings.TrimSpace(buf.String()), nil
}
