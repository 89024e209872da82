// Command import-laws bulk-loads the configured library source (an S3
// bucket or a local directory of PDFs) into the document store, so a
// fresh deployment can start with the full law library in place.
package main

import (
	"context"
	"flag"
	"log"

	"avokati-backend/config"
	"avokati-backend/repository"
	"avokati-backend/service"
	"avokati-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	prefix := flag.String("prefix", "", "only import objects under this prefix")
	dryRun := flag.Bool("dry-run", false, "list what would be imported without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zl.Sync()

	ctx := context.Background()

	library, err := storage.NewLibrary(cfg.Library)
	if err != nil {
		log.Fatal("Failed to initialize library source:", err)
	}

	objects, err := library.List(ctx, *prefix)
	if err != nil {
		log.Fatal("Failed to list library:", err)
	}
	if len(objects) == 0 {
		log.Println("Nothing to import")
		return
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		log.Printf("  %s (%d bytes)", obj.Name, obj.Size)
		names = append(names, obj.Name)
	}
	if *dryRun {
		log.Printf("Dry run: %d objects would be imported", len(names))
		return
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Postgres:", err)
	}
	defer pool.Close()

	documents := service.NewDocumentService(
		service.DocumentsWithStore(repository.NewDocumentRepository(pool)),
		service.DocumentsWithLogger(zl),
	)
	importer := service.NewImporterService(
		service.ImporterWithLibrary(library),
		service.ImporterWithDocuments(documents),
		service.ImporterWithLogger(zl),
	)

	result, err := importer.Import(ctx, names)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	log.Printf("Imported %d documents, %d rejected", len(result.Added), len(result.Rejected))
	for _, rej := range result.Rejected {
		log.Printf("  rejected %s: %s", rej.Name, rej.Reason)
	}
}
