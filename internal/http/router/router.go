// Package router wires the HTTP routes to their handlers and middleware.
package router

import (
	"log/slog"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pharmacy-backend/internal/auth"
	"pharmacy-backend/internal/http/handlers"
	"pharmacy-backend/internal/middleware"
	"pharmacy-backend/internal/storage"
)

// Options carries the handler settings that come from configuration.
type Options struct {
	UploadDir      string
	ExportPath     string
	RequestTimeout time.Duration
}

// Setup builds the route table. Routes registered on the protected
// subrouter pass through the token gate before reaching their handler.
func Setup(store storage.Store, jwtManager *auth.JWTManager, revoked *auth.RevocationList, opts Options, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger, middleware.Metrics)

	authenticator := auth.NewPasswordAuthenticator(store)
	authHandler := handlers.NewAuthHandler(authenticator, jwtManager, revoked, logger)
	purchaseHandler := handlers.NewPurchaseHandler(store, opts.UploadDir, opts.ExportPath, opts.RequestTimeout, logger)

	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.RequireAuth(jwtManager, revoked, store))

	protected.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	protected.HandleFunc("/fetch_purchase_data_from_csv", purchaseHandler.ImportCSV).Methods("POST")
	protected.HandleFunc("/get_purchase_data/{bill_no}", purchaseHandler.GetPurchase).Methods("GET")
	protected.HandleFunc("/update_purchase_detail_data/{id:[0-9]+}", purchaseHandler.UpdatePrice).Methods("PUT")
	protected.HandleFunc("/delete_purchase_detail_data/{id:[0-9]+}", purchaseHandler.DeleteDetail).Methods("DELETE")
	protected.HandleFunc("/create_purchase_csv", purchaseHandler.ExportCSV).Methods("GET")

	return r
}
