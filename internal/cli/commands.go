package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"medstock/internal/database"
	"medstock/internal/events"
	"medstock/internal/export"
	"medstock/internal/inventory"
)

// BackupCmd writes one database snapshot and prunes old ones.
type BackupCmd struct{}

func (c *BackupCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runCtx, stop := signalContext()
	defer stop()

	svc := database.NewBackupService(db, ctx.Config.Backup, ctx.Logger)
	path, err := svc.PerformBackup(runCtx)
	if err != nil {
		return err
	}
	removed := svc.CleanupOldBackups()
	fmt.Printf("Backup written to %s (%d old backups removed)\n", path, removed)
	return nil
}

// ExportCmd writes inventory reports to disk.
type ExportCmd struct {
	Users  []string `arg:"" optional:"" help:"Users to export. Defaults to every user with medicines."`
	Format string   `help:"Report format." enum:"xlsx,pdf" default:"xlsx"`
	Out    string   `help:"Output directory." type:"path" default:"."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runCtx, stop := signalContext()
	defer stop()

	users := c.Users
	if len(users) == 0 {
		if users, err = db.ListOwners(runCtx); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	inv := ctx.inventoryService(db, nil, events.NewEventBus())
	for _, uid := range users {
		path, err := c.exportUser(runCtx, inv, uid)
		if err != nil {
			return fmt.Errorf("export %s: %w", uid, err)
		}
		fmt.Printf("Exported %s to %s\n", uid, path)
	}
	return nil
}

func (c *ExportCmd) exportUser(ctx context.Context, inv *inventory.Service, userID string) (string, error) {
	views, err := inv.List(ctx, userID, inventory.Query{})
	if err != nil {
		return "", err
	}
	rep := export.Report{UserID: userID, GeneratedAt: inv.Now(), Items: views}
	path := filepath.Join(c.Out, rep.FileName(c.Format))

	if c.Format == "xlsx" {
		return path, export.SaveExcel(path, rep)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.WritePDF(f, rep); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// RemindCmd runs the reminder batch once, immediately.
type RemindCmd struct{}

func (c *RemindCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runCtx, stop := signalContext()
	defer stop()

	scheduler, err := ctx.reminderScheduler(db, nil)
	if err != nil {
		return err
	}
	stats, err := scheduler.RunNow(runCtx)
	if err != nil {
		return err
	}
	fmt.Printf("Users: %d, reminders: %d, sent: %d, skipped: %d, failed: %d\n",
		stats.Users, stats.Reminders, stats.Sent, stats.Skipped, stats.Failed)
	return nil
}
