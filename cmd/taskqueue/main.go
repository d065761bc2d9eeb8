package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-queue/internal/activity"
	"task-queue/internal/bot"
	"task-queue/internal/config"
	"task-queue/internal/repository"
	"task-queue/internal/service"
	"task-queue/internal/tree"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	stateRepo := repository.NewStateRepository(db)
	root, err := stateRepo.Load(ctx)
	if err != nil {
		log.Fatalf("load state: %v", err)
	}

	store := tree.NewStore(root)
	planner := service.NewPlannerService(store, stateRepo)
	backups := service.NewBackupService(store)

	telegramBot, err := bot.New(cfg.TelegramToken, cfg.OwnerID, cfg.Location, planner, backups, activity.New(cfg.LogDir))
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	reminders := service.NewReminderService(planner, telegramBot)

	checkReminders := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := reminders.Check(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reminders: %v", err)
		}
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	if _, err := scheduler.ScheduleInterval("reminders", cfg.CheckInterval, checkReminders); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	if _, err := scheduler.ScheduleDaily("backup", cfg.BackupTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendBackup(jobCtx, "Daily backup"); err != nil {
			log.Printf("daily backup: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule backup: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	go checkReminders()

	log.Println("Task queue bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := telegramBot.SendBackup(shutdownCtx, "Shutdown backup"); err != nil {
		log.Printf("shutdown backup: %v", err)
	}
	log.Println("Shutdown complete.")
}
