package httpapi

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/shared/auth"
	"github.com/radieske/fade-sync-platform/internal/shared/session"
)

// cors responde o preflight e libera a origem configurada
func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := a.Opts.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-admin-secret, stripe-signature")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser valida o JWT do Supabase e coloca a sessão no contexto
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.Opts.JWT.Verify(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sess := session.Session{UserID: claims.Subject, LinkStatus: session.LinkUnknown}
		if a.Sessions != nil && claims.Subject != "" {
			loaded, err := a.Sessions.Load(r.Context(), claims.Subject)
			if err != nil {
				// sessão é auxiliar; segue com os dados do token
				a.Log.Warn("session load failed", zap.String("user_id", claims.Subject), zap.Error(err))
			} else {
				sess = loaded
			}
		}
		sess.Email, sess.Role = claims.Email, claims.Role

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// requireAdmin compara X-Admin-Secret em tempo constante
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Secret")
		if a.Opts.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.Opts.AdminSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
