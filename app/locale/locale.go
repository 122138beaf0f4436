// Package locale formats dates and interface strings in Brazilian Portuguese.
package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
)

// Message keys used by the views.
const (
	KeyLoading     = "loading"
	KeyLoadMore    = "load_more"
	KeyNotFound    = "not_found"
	KeyFetchFailed = "fetch_failed"
	KeyReadingTime = "reading_time"
	KeySiteName    = "site_name"
)

var messages = map[string]string{
	KeyLoading:     "Carregando...",
	KeyLoadMore:    "Carregar mais posts",
	KeyNotFound:    "Post não encontrado",
	KeyFetchFailed: "Não foi possível carregar os posts. Tente novamente.",
	KeyReadingTime: "{0} min",
	KeySiteName:    "spacetraveling",
}

// Locale renders dates as "dd MMM yyyy" (15 mar 2021) in a fixed timezone.
type Locale struct {
	trans ut.Translator
	loc   *time.Location
}

// New builds a pt-BR locale. A nil location means UTC.
func New(loc *time.Location) (*Locale, error) {
	if loc == nil {
		loc = time.UTC
	}

	ptBR := pt_BR.New()
	uni := ut.New(ptBR, ptBR)
	trans, found := uni.GetTranslator(ptBR.Locale())
	if !found {
		return nil, fmt.Errorf("locale %s not registered", ptBR.Locale())
	}

	for key, text := range messages {
		if err := trans.Add(key, text, false); err != nil {
			return nil, fmt.Errorf("register message %q: %w", key, err)
		}
	}

	return &Locale{trans: trans, loc: loc}, nil
}

// FormatDate returns an empty string for posts that were never published.
func (l *Locale) FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	local := t.In(l.loc)
	// CLDR abbreviations carry a trailing dot ("mar.").
	month := strings.ToLower(strings.TrimSuffix(l.trans.MonthAbbreviated(local.Month()), "."))
	return fmt.Sprintf("%02d %s %04d", local.Day(), month, local.Year())
}

// T returns the message for key, or the key itself when it is unknown.
func (l *Locale) T(key string, params ...string) string {
	s, err := l.trans.T(key, params...)
	if err != nil {
		return key
	}
	return s
}

// ReadingTime renders minutes the way the post header shows them.
func (l *Locale) ReadingTime(minutes int) string {
	return l.T(KeyReadingTime, fmt.Sprint(minutes))
}
