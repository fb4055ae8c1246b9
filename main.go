package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/akopov/azs-backoffice/backend/config"
	"github.com/akopov/azs-backoffice/backend/database"
	"github.com/akopov/azs-backoffice/backend/handlers"
	"github.com/akopov/azs-backoffice/backend/middleware"
	"github.com/akopov/azs-backoffice/backend/services"
	"github.com/akopov/azs-backoffice/backend/services/sts"
)

var (
	transactionCollector *services.TransactionCollector
	mqttCollector        *services.MQTTCollector
	modbusCollector      *services.ModbusCollector
)

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %v", err)
				log.Printf("Stack trace: %s", debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	log.Println("Starting AZS Back-Office...")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	stsStore := sts.NewSettingsStore(db)
	stsClient := sts.NewClient(stsStore)

	transactionCollector = services.NewTransactionCollector(db, stsClient)
	mqttCollector = services.NewMQTTCollector(db)
	modbusCollector = services.NewModbusCollector(db)

	go transactionCollector.Start()
	mqttCollector.Start()
	modbusCollector.Start()

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(db)
	roleHandler := handlers.NewRoleHandler(db)
	networkHandler := handlers.NewNetworkHandler(db, mqttCollector, modbusCollector)
	couponHandler := handlers.NewCouponHandler(db)
	priceListHandler := handlers.NewPriceListHandler(db)
	stsSettingsHandler := handlers.NewSTSSettingsHandler(stsClient)
	stsDataHandler := handlers.NewSTSDataHandler(db, stsClient)
	dashboardHandler := handlers.NewDashboardHandler(db)

	r := mux.NewRouter()

	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/health", healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods("POST")
	api.HandleFunc("/debug/status", debugStatusHandler).Methods("GET")

	api.HandleFunc("/admin-users", userHandler.List).Methods("GET")
	api.HandleFunc("/admin-users", userHandler.Create).Methods("POST")
	api.HandleFunc("/admin-users/{id}", userHandler.Get).Methods("GET")
	api.HandleFunc("/admin-users/{id}", userHandler.Update).Methods("PUT")
	api.HandleFunc("/admin-users/{id}", userHandler.Delete).Methods("DELETE")

	api.HandleFunc("/roles", roleHandler.List).Methods("GET")
	api.HandleFunc("/roles", roleHandler.Create).Methods("POST")
	api.HandleFunc("/roles/{id}", roleHandler.Get).Methods("GET")
	api.HandleFunc("/roles/{id}", roleHandler.Update).Methods("PUT")
	api.HandleFunc("/roles/{id}", roleHandler.Delete).Methods("DELETE")

	api.HandleFunc("/networks", networkHandler.List).Methods("GET")
	api.HandleFunc("/networks", networkHandler.Create).Methods("POST")
	api.HandleFunc("/networks/{id}", networkHandler.Get).Methods("GET")
	api.HandleFunc("/networks/{id}", networkHandler.Update).Methods("PUT")
	api.HandleFunc("/networks/{id}", networkHandler.Delete).Methods("DELETE")
	api.HandleFunc("/networks/{id}/trading-points", networkHandler.ListTradingPoints).Methods("GET")
	api.HandleFunc("/networks/{id}/trading-points", networkHandler.CreateTradingPoint).Methods("POST")
	api.HandleFunc("/trading-points/{id}", networkHandler.UpdateTradingPoint).Methods("PUT")
	api.HandleFunc("/trading-points/{id}", networkHandler.DeleteTradingPoint).Methods("DELETE")

	api.HandleFunc("/coupons", couponHandler.List).Methods("GET")
	api.HandleFunc("/coupons", couponHandler.Create).Methods("POST")
	api.HandleFunc("/coupons/{id}", couponHandler.Get).Methods("GET")
	api.HandleFunc("/coupons/{id}", couponHandler.Update).Methods("PUT")
	api.HandleFunc("/coupons/{id}", couponHandler.Delete).Methods("DELETE")

	api.HandleFunc("/price-lists", priceListHandler.List).Methods("GET")
	api.HandleFunc("/price-lists", priceListHandler.Create).Methods("POST")
	api.HandleFunc("/price-lists/{id}", priceListHandler.Get).Methods("GET")
	api.HandleFunc("/price-lists/{id}", priceListHandler.Update).Methods("PUT")
	api.HandleFunc("/price-lists/{id}", priceListHandler.Delete).Methods("DELETE")
	api.HandleFunc("/price-lists/{id}/activate", priceListHandler.Activate).Methods("POST")

	api.HandleFunc("/settings/sts", stsSettingsHandler.Get).Methods("GET")
	api.HandleFunc("/settings/sts", stsSettingsHandler.Update).Methods("PUT")
	api.HandleFunc("/settings/sts/status", stsSettingsHandler.Status).Methods("GET")
	api.HandleFunc("/settings/sts/refresh-token", stsSettingsHandler.RefreshToken).Methods("POST")

	api.HandleFunc("/sts/tanks", stsDataHandler.Tanks).Methods("GET")
	api.HandleFunc("/sts/tanks/{id}", stsDataHandler.Tank).Methods("GET")
	api.HandleFunc("/sts/pumps", stsDataHandler.Pumps).Methods("GET")
	api.HandleFunc("/sts/sales", stsDataHandler.Sales).Methods("GET")
	api.HandleFunc("/sts/prices", stsDataHandler.Prices).Methods("GET")
	api.HandleFunc("/sts/prices", stsDataHandler.UpdatePrice).Methods("POST")
	api.HandleFunc("/sts/transactions", stsDataHandler.Transactions).Methods("GET")
	api.HandleFunc("/sts/terminal-info", stsDataHandler.TerminalInfo).Methods("GET")
	api.HandleFunc("/sts/sync", syncNowHandler).Methods("POST")

	api.HandleFunc("/dashboard/stats", dashboardHandler.Stats).Methods("GET")
	api.HandleFunc("/dashboard/sales-by-fuel", dashboardHandler.SalesByFuel).Methods("GET")
	api.HandleFunc("/dashboard/tank-levels", dashboardHandler.TankLevels).Methods("GET")
	api.HandleFunc("/dashboard/logs", dashboardHandler.ActivityLog).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:4173", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := c.Handler(r)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.ServerAddress)
	log.Println("Transaction collector running (15-minute intervals)")
	log.Println("Default credentials: admin / admin123")
	log.Println("IMPORTANT: Change default password after first login!")
	log.Println("===========================================")

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func debugStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"transactions": transactionCollector.GetDebugInfo(),
		"mqtt":         mqttCollector.GetConnectionStatus(),
		"modbus":       modbusCollector.GetConnectionStatus(),
	})
}

func syncNowHandler(w http.ResponseWriter, r *http.Request) {
	transactionCollector.CollectNow()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "sync started"})
}
