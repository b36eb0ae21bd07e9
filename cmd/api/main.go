package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/config"
	appHTTP "github.com/stafftrack/attendance-backend-go/internal/handler/http"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/biometric"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/cron"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/sse"
	"github.com/stafftrack/attendance-backend-go/internal/repository/postgresql"
	attendanceService "github.com/stafftrack/attendance-backend-go/internal/service/attendance"
	autoclockService "github.com/stafftrack/attendance-backend-go/internal/service/autoclock"
	deviceService "github.com/stafftrack/attendance-backend-go/internal/service/device"
	notificationService "github.com/stafftrack/attendance-backend-go/internal/service/notification"
	performanceService "github.com/stafftrack/attendance-backend-go/internal/service/performance"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	companyRepo := postgresql.NewCompanyRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	autoclockRepo := postgresql.NewAutoclockRepository(db)
	performanceRepo := postgresql.NewPerformanceRepository(db)
	deviceRepo := postgresql.NewDeviceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	hub := sse.NewHub()
	notificationSvc := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{})

	verifier := biometric.NewHMACVerifier(cfg.Biometric.Secret)
	attendanceSvc := attendanceService.NewAttendanceService(companyRepo, employeeRepo, attendanceRepo, notificationSvc, verifier)
	autoclockSvc := autoclockService.NewSchedulerService(companyRepo, autoclockRepo, attendanceRepo, attendanceSvc, notificationSvc)
	performanceSvc := performanceService.NewSnapshotService(companyRepo, employeeRepo, performanceRepo, notificationSvc, db)
	deviceSvc := deviceService.NewDeviceService(deviceRepo, companyRepo, employeeRepo, autoclockRepo)

	scheduler := cron.NewScheduler()
	autoclockSvc.RegisterJobs(scheduler)
	performanceSvc.RegisterJobs(scheduler)
	scheduler.Start()

	jwtAuth := appHTTP.NewJWTAuth(cfg.JWT.Secret)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	performanceHandler := appHTTP.NewPerformanceHandler(performanceSvc)
	deviceHandler := appHTTP.NewDeviceHandler(deviceSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notificationSvc, hub)

	router := appHTTP.NewRouter(
		jwtAuth,
		attendanceHandler,
		performanceHandler,
		deviceHandler,
		notificationHandler,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		fmt.Println("Server shutdown error:", err)
	}

	// Stop background work after the HTTP surface is drained so in-flight
	// requests can still queue notifications.
	scheduler.Stop()
	notificationSvc.Stop()
}
