package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"robogrid/grid_world"
	"robogrid/models"
	"robogrid/page"
	"robogrid/server/cell_views"
	"robogrid/server/fastview"
	"robogrid/server/root_view"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves a single page, driven by a single stage. The page is rendered from the
// board's current state; after that the board speaks to the page only through the stage.
// A newly opened page replaces the previous one.
type Server struct {
	addr        string
	page        *page.Page
	stage       *fastview.Stage
	rootView    *root_view.RootView
	cellSize    models.CellSize
	borderColor string
	router      *mux.Router
}

// NewServer initializes all of the views and returns a server. The views' updates are
// forwarded to the stage for as long as ctx lives.
func NewServer(
	ctx context.Context,
	addr string,
	pg *page.Page,
	stage *fastview.Stage,
	cellSize models.CellSize,
	borderColor string,
) (*Server, error) {
	rootView, err := root_view.NewRootView(ctx, pg.Snapshots())
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}
	go stage.Forward(ctx, rootView.Updates())

	server := &Server{
		addr:        addr,
		page:        pg,
		stage:       stage,
		rootView:    rootView,
		cellSize:    cellSize,
		borderColor: borderColor,
	}
	server.router = server.routes()
	return server, nil
}

func (server *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	router.HandleFunc("/status", server.serveStatus).Methods(http.MethodGet)

	controls := router.PathPrefix("/controls").Methods(http.MethodPost).Subrouter()
	controls.HandleFunc("/reset", server.reset)
	controls.HandleFunc("/random", server.randomize)
	controls.HandleFunc("/go", server.goSweep)

	router.HandleFunc("/cells/{x:[0-9]+}/{y:[0-9]+}/toggle", server.toggleCell).Methods(http.MethodPost)
	return router
}

// Handler returns the server's routes, e.g. for httptest.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("serving on %s", server.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// serveWebsocket attaches the requesting page to the stage, for as long as it stays connected.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	if err := server.stage.Serve(w, r); err != nil {
		log.Println("websocket:", err)
	}
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	robot := server.page.Robot()
	data := root_view.PageData{
		Board: cell_views.NewBoard(
			server.page.Grid(),
			robot.Position(),
			server.cellSize,
			server.borderColor),
		Status: cell_views.NewStatus(server.page.Snapshot()),
	}
	if err := renderTemplate(w, server.rootView, data); err != nil {
		log.Println("render index:", err)
		_, _ = w.Write([]byte(err.Error()))
	}
}

func (server *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.page.Snapshot()); err != nil {
		log.Println("status:", err)
	}
}

// reset does not wait for the grid's transitions.
func (server *Server) reset(w http.ResponseWriter, r *http.Request) {
	server.page.Reset()
	w.WriteHeader(http.StatusAccepted)
}

// randomize replies once every cell's transition has ended.
func (server *Server) randomize(w http.ResponseWriter, r *http.Request) {
	if err := server.page.Randomize(r.Context()); err != nil {
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// goSweep replies as soon as the sweep has started.
func (server *Server) goSweep(w http.ResponseWriter, r *http.Request) {
	if err := server.page.Go(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (server *Server) toggleCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// The route only matches digits, so these fail only on overflow.
	x, xErr := strconv.Atoi(vars["x"])
	y, yErr := strconv.Atoi(vars["y"])
	if xErr != nil || yErr != nil {
		http.Error(w, "bad cell coordinates", http.StatusBadRequest)
		return
	}

	err := server.page.ToggleCell(r.Context(), x, y)
	switch {
	case errors.Is(err, grid_world.ErrOutOfRange):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
