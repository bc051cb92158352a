package render

import (
	"fmt"
	"html/template"
)

// Theme holds the colors and fonts of the newsletter email.
type Theme struct {
	Name            string
	HeaderColor     string
	AccentColor     string
	BackgroundColor string
	TextColor       string
	MutedColor      string
	BorderColor     string
	MaxWidth        string
	FontFamily      string
}

// DefaultTheme returns the warm, single-column newsletter look.
func DefaultTheme() Theme {
	return Theme{
		Name:            "default",
		HeaderColor:     "#bf360c", // Deep orange 900
		AccentColor:     "#ff7043", // Deep orange 400
		BackgroundColor: "#f5f5f5",
		TextColor:       "#333333",
		MutedColor:      "#888888",
		BorderColor:     "#ffccbc", // Deep orange 100
		MaxWidth:        "600px",
		FontFamily:      "Georgia, 'Times New Roman', serif",
	}
}

// MinimalTheme returns a neutral sans-serif look.
func MinimalTheme() Theme {
	return Theme{
		Name:            "minimal",
		HeaderColor:     "#1e293b", // Slate-800
		AccentColor:     "#3b82f6", // Blue-500
		BackgroundColor: "#ffffff",
		TextColor:       "#1e293b",
		MutedColor:      "#64748b", // Slate-500
		BorderColor:     "#e2e8f0", // Slate-200
		MaxWidth:        "600px",
		FontFamily:      "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
}

// ThemeByName returns the named theme, falling back to DefaultTheme.
func ThemeByName(name string) Theme {
	if name == "minimal" {
		return MinimalTheme()
	}
	return DefaultTheme()
}

// css returns the stylesheet for a theme.
func (t Theme) css() template.CSS {
	return template.CSS(fmt.Sprintf(`
  body, table, td, p, a, li {
    -webkit-text-size-adjust: 100%%;
    -ms-text-size-adjust: 100%%;
  }
  body {
    margin: 0;
    padding: 20px;
    background-color: %[3]s;
    font-family: %[8]s;
    color: %[4]s;
    line-height: 1.6;
  }
  .container {
    max-width: %[7]s;
    margin: 0 auto;
    background-color: #ffffff;
    padding: 20px;
    border-radius: 10px;
    box-shadow: 0 4px 10px rgba(0,0,0,0.05);
  }
  .header-logo {
    display: block;
    margin: 0 auto 10px auto;
    max-width: 120px;
  }
  h1 {
    color: %[1]s;
    text-align: center;
    margin-bottom: 5px;
  }
  .date {
    text-align: center;
    color: %[5]s;
    font-size: 14px;
  }
  h2 {
    color: %[1]s;
    border-bottom: 2px solid %[6]s;
    padding-bottom: 5px;
  }
  h3 {
    margin: 0;
    color: %[1]s;
  }
  .section {
    margin-bottom: 30px;
  }
  .card {
    background-color: #ffffff;
    padding: 15px;
    margin-bottom: 15px;
    border-radius: 8px;
    box-shadow: 0 2px 6px rgba(0,0,0,0.1);
  }
  .card p {
    margin: 5px 0 10px 0;
  }
  .button {
    display: inline-block;
    padding: 8px 15px;
    background-color: %[2]s;
    color: #ffffff;
    text-decoration: none;
    border-radius: 4px;
  }
  pre.raw {
    white-space: pre-wrap;
    word-wrap: break-word;
    font-family: inherit;
  }
  .footer {
    text-align: center;
    font-size: 12px;
    color: %[5]s;
    margin-top: 30px;
    border-top: 1px solid #eeeeee;
    padding-top: 10px;
  }
`, t.HeaderColor, t.AccentColor, t.BackgroundColor, t.TextColor, t.MutedColor, t.BorderColor, t.MaxWidth, t.FontFamily))
}
