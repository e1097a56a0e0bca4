package folio

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	themeLight = "light"
	themeDark  = "dark"
	themeKey   = "theme"
)

// nextTheme flips the effective theme. A "system" preference resolves to the
// theme the browser reported, light when unknown.
func nextTheme(current, resolved string) string {
	effective := current
	if effective != themeLight && effective != themeDark {
		effective = resolved
	}
	if effective == themeDark {
		return themeLight
	}
	return themeDark
}

// ThemeFromSession returns the stored theme preference, "" when none is set
// or the session is unavailable.
func ThemeFromSession(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	switch theme, _ := sess.Values[themeKey].(string); theme {
	case themeLight, themeDark:
		return theme
	}
	return ""
}

func (a *App) handleTheme(c echo.Context) error {
	theme := nextTheme(c.FormValue("current"), c.FormValue("resolved"))
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[themeKey] = theme
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	if c.Request().Header.Get("X-Requested-With") == "fetch" {
		return c.JSON(http.StatusOK, map[string]string{themeKey: theme})
	}
	return c.Redirect(http.StatusSeeOther, safeRedirect(c.FormValue("redirect")))
}
