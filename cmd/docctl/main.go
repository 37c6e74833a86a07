// Command docctl inspects documents, statuses and templates from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/db"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
)

const usage = `usage: docctl <command> [args]

commands:
  statuses <type>        list the statuses of a document type
  overlay [file.yaml]    validate an overlay placement table (embedded table when omitted)
  chain <document-id>    print the lineage of a document
  resolve <document-id>  show which template a document renders with
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	_ = godotenv.Load()

	if err := run(context.Background(), flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	switch args[0] {
	case "statuses":
		if len(args) != 2 {
			return fmt.Errorf("statuses needs a document type")
		}
		s, err := formatStatuses(models.DocumentType(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprint(out, s)
		return nil
	case "overlay":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		table, err := render.LoadOverlayTable(path)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatOverlay(table))
		return nil
	case "chain", "resolve":
		if len(args) != 2 {
			return fmt.Errorf("%s needs a document id", args[0])
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid document id: %w", err)
		}
		conn, err := connect()
		if err != nil {
			return err
		}
		if args[0] == "chain" {
			return printChain(ctx, conn, id, out)
		}
		return printResolution(ctx, conn, id, out)
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

func connect() (*gorm.DB, error) {
	cfg := config.Load()
	return db.Connect(cfg.Database, logger.Nop())
}

func printChain(ctx context.Context, conn *gorm.DB, id uuid.UUID, out io.Writer) error {
	docs := store.NewDocumentRepo(conn, logger.Nop())
	chain, err := lineage.NewTracker(docs, logger.Nop()).Chain(ctx, id)
	if err != nil {
		return err
	}
	if chain.Current == nil {
		return store.ErrNotFound
	}
	fmt.Fprint(out, formatChain(chain))
	return nil
}

func printResolution(ctx context.Context, conn *gorm.DB, id uuid.UUID, out io.Writer) error {
	log := logger.Nop()
	doc, err := store.NewDocumentRepo(conn, log).Get(ctx, id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := templates.NewResolver(store.NewTemplateRepo(conn, log), log).Resolve(ctx, doc.TemplateID, doc.Type)
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatResolution(doc, res))
	return nil
}
