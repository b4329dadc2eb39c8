package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"go-fulfillment-ws/internal/config"
	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/pkg/database"
)

func main() {
	file := flag.String("file", "", "CSV with columns scan_code,name,image_url,quantity")
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: import-products -file products.csv")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	cfg := config.Load()
	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Events go nowhere: connected clients refresh on their next poll.
	catalog := service.NewCatalogService(repository.NewGormStore(db), event.NewFanout(cfg.ServiceName))
	res, err := catalog.ImportProducts(context.Background(), rows, service.Actor{Name: "import-products"})
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	for _, e := range res.Errors {
		log.Println(e)
	}
	log.Printf("Imported %d rows: %d created, %d updated, %d failed", len(rows), res.Created, res.Updated, res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}

// readRows parses the product sheet. A header row starting with
// "scan_code" is skipped; image_url and quantity may be empty.
func readRows(r io.Reader) ([]service.ProductInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []service.ProductInput
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "scan_code") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want at least scan_code,name", line)
		}

		in := service.ProductInput{
			ScanCode: strings.TrimSpace(rec[0]),
			Name:     strings.TrimSpace(rec[1]),
		}
		if len(rec) > 2 {
			in.ImageURL = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			qty, err := strconv.Atoi(strings.TrimSpace(rec[3]))
			if err != nil {
				return nil, fmt.Errorf("line %d: quantity %q: %w", line, rec[3], err)
			}
			in.AvailableQuantity = qty
		}
		rows = append(rows, in)
	}
}
