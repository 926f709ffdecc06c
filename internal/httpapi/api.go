package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"retensync.io/internal/audit"
	"retensync.io/internal/authclient"
	"retensync.io/internal/guard"
	"retensync.io/internal/obs"
	"retensync.io/internal/security"
	"retensync.io/internal/session"
)

// ReadyProbe checks the storage backends behind the session tiers.
type ReadyProbe struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer over the session-security core.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	store     *session.Store
	monitor   *session.Monitor
	validator *security.Validator
	recorder  *audit.Recorder
	auth      *authclient.Client
	checker   *guard.Checker

	rateRPS   int
	rateBurst int
	now       func() time.Time
}

// Deps bundles the services the API serves.
type Deps struct {
	Store     *session.Store
	Monitor   *session.Monitor
	Validator *security.Validator
	Recorder  *audit.Recorder
	Auth      *authclient.Client
	Checker   *guard.Checker
	Ready     ReadyProbe
	RateRPS   int
	RateBurst int
}

func New(deps Deps, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: deps.Ready,
		version:    version,
		store:      deps.Store,
		monitor:    deps.Monitor,
		validator:  deps.Validator,
		recorder:   deps.Recorder,
		auth:       deps.Auth,
		checker:    deps.Checker,
		rateRPS:    deps.RateRPS,
		rateBurst:  deps.RateBurst,
		now:        time.Now,
	}
	if a.checker == nil {
		a.checker = guard.NewChecker(nil, nil)
	}
	if a.rateRPS <= 0 {
		a.rateRPS = 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// authentication lifecycle
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	// session introspection
	a.mux.HandleFunc("/v1/session", a.handleSession)
	a.mux.HandleFunc("/v1/session/activity", a.handleActivity)
	a.mux.HandleFunc("/v1/access/check", a.handleAccessCheck)

	// audit trail, admin/hr only
	a.mux.Handle("/v1/security/events", a.protectedEvents())

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.rateRPS)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
