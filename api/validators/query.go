package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

// QueryInt parses an optional integer query parameter, falling back to def
// when the parameter is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, name+" must be an integer")
	}
	return n, nil
}

// QueryString returns a trimmed query parameter, empty when absent.
func QueryString(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
