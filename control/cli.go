package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/em32/mlcatalog/catalog"
	"github.com/em32/mlcatalog/catalog/plan"
)

// ParsePublishArgs parses args after "publish".
// Usage: mlcatalog publish [--no-tui] [--hash <cid>] [--config <file>]
func ParsePublishArgs(args []string) (configPath, hash string, noTUI bool) {
	configPath = defaultConfigPath
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--no-tui":
			noTUI = true
		case args[i] == "--hash" && i+1 < len(args):
			i++
			hash = args[i]
		case args[i] == "--config" && i+1 < len(args):
			i++
			configPath = args[i]
		case strings.HasPrefix(args[i], "--hash="):
			hash = strings.TrimPrefix(args[i], "--hash=")
		case strings.HasPrefix(args[i], "--config="):
			configPath = strings.TrimPrefix(args[i], "--config=")
		}
	}
	return configPath, hash, noTUI
}

func publishCommand() {
	configPath, hash, noTUI := ParsePublishArgs(os.Args[2:])

	root := cid.Undef
	if hash != "" {
		decoded, err := cid.Decode(hash)
		if err != nil {
			log.Fatalf("Invalid root CID: %v", err)
		}
		root = decoded
	}

	cfg, logger := setup(configPath)
	defer logger.Close()

	if err := os.MkdirAll(cfg.Catalog.PlanDir, 0755); err != nil {
		log.Fatalf("Failed to create plan directory: %v", err)
	}

	svc := catalog.NewService(cfg, logger)
	if err := svc.LoadSeasons(); err != nil {
		log.Fatalf("Failed to load seasons: %v", err)
	}

	ctx := signalContext()
	if WantTUI(noTUI) {
		runPublishWithTUI(ctx, svc, cfg.UI.LogPath, root)
		return
	}

	if err := svc.Publish(ctx, root); err != nil {
		log.Fatalf("Failed to start publish: %v", err)
	}
	log.Printf("Publishing... log file: %s", cfg.UI.LogPath)
	svc.WaitForCompletion()
	reportOutcome(svc)
}

// reportOutcome prints the final pipeline outcome and exits non-zero on
// failures.
func reportOutcome(svc *catalog.Service) {
	status := svc.GetStatus()
	phase, _ := status["phase"].(catalog.ServicePhase)

	switch phase {
	case catalog.ServicePhaseCompleted:
		if stats, ok := status["plan_stats"].(map[string]interface{}); ok {
			fmt.Printf("Publish completed: %v done, %v failed, %v total\n",
				stats["completed"], stats["failed"], stats["total"])
			if failed, ok := stats["failed"].(int); ok && failed > 0 {
				os.Exit(1)
			}
		} else {
			fmt.Println("Publish completed")
		}
		printPatchResult(svc.GetPlan())
	case catalog.ServicePhaseError:
		if errMsg, ok := status["error"].(string); ok {
			fmt.Fprintf(os.Stderr, "Publish failed: %s\n", errMsg)
		} else {
			fmt.Fprintln(os.Stderr, "Publish failed")
		}
		os.Exit(1)
	}
}

// printPatchResult echoes the patched root URL, which the patch runner
// stores as the patch item's detail.
func printPatchResult(p *plan.PublishPlan) {
	if p == nil {
		return
	}
	for _, item := range p.GetItemsByType(plan.ItemTypePatch) {
		if item.GetStatus() == plan.ItemStatusCompleted && item.Detail != "" {
			fmt.Println(item.Detail)
		}
	}
}
