package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jask/easycat/internal/auth"
	"github.com/jask/easycat/internal/config"
	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/qbo"
	"github.com/jask/easycat/internal/service"
	"github.com/jask/easycat/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	logger := newLogger(cfg.Database.Path)

	// repositories
	txRepo := repository.NewTransactionRepo(db)
	catRepo := repository.NewCategoryRepo(db)
	ruleRepo := repository.NewRuleRepo(db)
	vendorRepo := repository.NewVendorMappingRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	flow := auth.NewFlow(cfg.QuickBooks)

	verb := ""
	if len(os.Args) > 1 {
		verb = os.Args[1]
	}

	if verb == "auth" {
		if err := runAuth(ctx, flow, tokenRepo); err != nil {
			log.Fatalf("auth: %v", err)
		}
		fmt.Println("authorized")
		return
	}

	client, err := newClient(ctx, cfg, flow, tokenRepo)
	if err != nil {
		log.Fatalf("quickbooks client: %v", err)
	}

	syncer := &service.Syncer{Remote: client, Transactions: txRepo, Categories: catRepo, Log: logger}
	poster := &service.Poster{Remote: client, Transactions: txRepo, Categories: catRepo, Log: logger}
	categorizer := &service.Categorizer{Transactions: txRepo, Rules: ruleRepo, Vendors: vendorRepo, Log: logger}
	suggester := &service.Suggester{Transactions: txRepo}

	switch verb {
	case "sync":
		cats, err := syncer.SyncCategories(ctx)
		if err != nil {
			log.Fatalf("sync categories: %v", err)
		}
		res, err := syncer.SyncTransactions(ctx, nil, nil)
		if err != nil {
			log.Fatalf("sync transactions: %v", err)
		}
		fmt.Printf("synced %d categories; %d transactions (%d new, %d refreshed)\n",
			cats, res.Fetched, res.Created, res.Updated)

	case "categorize":
		res, err := categorizer.ApplyRules(ctx)
		if err != nil {
			log.Fatalf("categorize: %v", err)
		}
		fmt.Printf("rules matched %d of %d pending transactions\n", res.Matched, res.Scanned)

	case "post":
		res, err := poster.PostCategorized(ctx)
		if err != nil {
			log.Fatalf("post: %v", err)
		}
		fmt.Printf("posted %d, skipped %d, failed %d\n", res.Posted, res.Skipped, res.Failed)
		for _, item := range res.Items {
			if item.Outcome != service.OutcomePosted {
				fmt.Printf("  %s %s: %s\n", item.Outcome, item.RemoteID, item.Reason)
			}
		}

	case "":
		deps := tui.Deps{
			Transactions: txRepo,
			Categories:   catRepo,
			Syncer:       syncer,
			Poster:       poster,
			Categorizer:  categorizer,
			Suggester:    suggester,
			Log:          logger,
		}
		if err := tui.Run(ctx, deps); err != nil {
			log.Fatalf("tui: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "usage: easycat [auth|sync|categorize|post]\n")
		os.Exit(2)
	}
}

func runAuth(ctx context.Context, flow *auth.Flow, tokens *repository.TokenRepo) error {
	res, err := flow.Authorize(ctx, openBrowser)
	if err != nil {
		return err
	}
	_, err = auth.SaveResult(ctx, tokens, res)
	return err
}

func newClient(ctx context.Context, cfg config.Config, flow *auth.Flow, tokens *repository.TokenRepo) (*qbo.Client, error) {
	stored, err := tokens.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, auth.ErrNotAuthorized
	}
	base := qbo.ProductionBaseURL
	if cfg.QuickBooks.IsSandbox() {
		base = qbo.SandboxBaseURL
	}
	return qbo.NewClient(base, stored.RealmID, flow.TokenSource(ctx, tokens, stored.RealmID)), nil
}

// newLogger writes structured logs next to the database; stdout belongs to
// the TUI.
func newLogger(dbPath string) *slog.Logger {
	logPath := filepath.Join(filepath.Dir(dbPath), "easycat.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	// give the browser a moment before the terminal takes over
	time.Sleep(200 * time.Millisecond)
	return nil
}
