package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/history"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/prompt"
	"github.com/yuval-kahan/Bookmarks-Search/internal/scope"
	"github.com/yuval-kahan/Bookmarks-Search/internal/search"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API used by the browser extension",
	Long: `Start the local HTTP API used by the browser extension.

Saved deep-search page size and format apply from the next search. The
cache duration is read at startup; restart to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Bookmarks.Watch {
			if err := env.Library.Watch(ctx); err != nil {
				zap.L().Warn("bookmark file not watched, restart to pick up changes", zap.Error(err))
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:           buildRouter(env, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type searchRequest struct {
	Query       string   `json:"query"`
	Mode        string   `json:"mode"`
	Deep        bool     `json:"deep"`
	Raw         bool     `json:"raw"`
	Folders     []string `json:"folders"`
	IDs         []string `json:"ids"`
	All         bool     `json:"all"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	OllamaURL   string   `json:"ollamaUrl"`
	OllamaModel string   `json:"ollamaModel"`
}

func (r searchRequest) toSearch() search.Request {
	req := search.Request{
		Query: r.Query,
		Mode:  model.SearchMode(r.Mode),
		Deep:  r.Deep,
		Raw:   r.Raw,
	}
	// An explicit but empty selection is kept so it fails validation.
	if !r.All && (r.Folders != nil || r.IDs != nil) {
		req.Scope = &scope.Selection{Folders: r.Folders, IDs: r.IDs}
	}
	if r.Provider != "" || r.OllamaURL != "" || r.OllamaModel != "" {
		req.Provider = &model.ProviderSelection{
			Provider:    r.Provider,
			Model:       r.Model,
			OllamaURL:   r.OllamaURL,
			OllamaModel: r.OllamaModel,
		}
	}
	return req
}

type providerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DefaultModel string `json:"defaultModel,omitempty"`
	ModelField   string `json:"modelField"`
}

// buildRouter wires the API routes over env.
func buildRouter(env *appEnv, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
			var body searchRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			res, err := env.Search.Search(req.Context(), body.toSearch())
			if err != nil {
				writeError(w, searchStatus(err), err.Error())
				return
			}
			if res.Items == nil {
				res.Items = []model.Item{}
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Post("/search/cancel", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"cancelled": env.Search.Cancel()})
		})

		r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
			records, err := env.History.List(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			f, err := historyFilterFromQuery(req)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			records = f.Apply(records, time.Now())
			if records == nil {
				records = []model.HistoryRecord{}
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Delete("/history/{id}", func(w http.ResponseWriter, req *http.Request) {
			err := env.History.Delete(req.Context(), chi.URLParam(req, "id"))
			switch {
			case errors.Is(err, history.ErrNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case err != nil:
				writeError(w, http.StatusInternalServerError, err.Error())
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		})

		r.Delete("/history", func(w http.ResponseWriter, req *http.Request) {
			if err := env.History.Clear(req.Context()); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/cache/stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, env.Cache.Stats(req.Context()))
		})

		r.Delete("/cache", func(w http.ResponseWriter, req *http.Request) {
			env.Cache.Clear(req.Context())
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/prompt", func(w http.ResponseWriter, req *http.Request) {
			tpl, err := env.Settings.Prompt(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"template": tpl,
				"custom":   tpl != "",
				"default":  prompt.DefaultTemplate,
			})
		})

		r.Put("/prompt", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Template string `json:"template"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			var err error
			if body.Template == "" {
				err = env.Settings.ResetPrompt(req.Context())
			} else {
				err = env.Settings.SavePrompt(req.Context(), body.Template)
			}
			switch {
			case errors.Is(err, prompt.ErrMissingQueryPlaceholder):
				writeError(w, http.StatusBadRequest, err.Error())
			case err != nil:
				writeError(w, http.StatusInternalServerError, err.Error())
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		})

		r.Get("/providers", func(w http.ResponseWriter, _ *http.Request) {
			ps := env.Gateway.Providers()
			out := make([]providerInfo, 0, len(ps))
			for _, p := range ps {
				out = append(out, providerInfo{ID: p.ID, Name: p.Name, DefaultModel: p.DefaultModel, ModelField: string(p.ModelField)})
			}
			writeJSON(w, http.StatusOK, out)
		})
	})

	return r
}

// searchStatus maps validation errors to 400.
func searchStatus(err error) int {
	for _, target := range []error{
		search.ErrEmptyQuery,
		search.ErrNoProvider,
		search.ErrInvalidMode,
		scope.ErrEmptySelection,
		prompt.ErrMissingQueryPlaceholder,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func historyFilterFromQuery(req *http.Request) (history.Filter, error) {
	q := req.URL.Query()
	f := history.Filter{
		Query: q.Get("q"),
		Fuzzy: q.Get("fuzzy") == "true",
		Range: history.Range(q.Get("range")),
	}
	var err error
	if f.From, err = parseDay(q.Get("from"), false); err != nil {
		return f, err
	}
	if f.To, err = parseDay(q.Get("to"), true); err != nil {
		return f, err
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
