// Command uploader sends CSV files of sensor readings to the ingestion backend.
//
//	uploader readings-1.csv readings-2.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
	"github.com/02loveslollipop/sensor-dashboard/services/uploader/internal/config"
)

type submitter interface {
	Upload(ctx context.Context, f *upload.File) (upload.Ack, error)
}

type summary struct {
	Uploaded int
	Records  int
	Skipped  int
	Failed   int
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("uploader failed: %v", err)
	}
}

func run(paths []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no CSV files given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(paths))*cfg.RequestTimeout+10*time.Second)
	defer cancel()

	sum := uploadAll(ctx, upload.New(cfg.BackendBaseURL, cfg.RequestTimeout), paths, cfg.DryRun)
	log.Printf("uploaded %d files (%d records), skipped %d, failed %d (dry-run=%v)",
		sum.Uploaded, sum.Records, sum.Skipped, sum.Failed, cfg.DryRun)

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, len(paths))
	}
	return nil
}

// uploadAll sends each file in turn. Missing files are skipped and a failed
// upload does not stop the rest.
func uploadAll(ctx context.Context, sub submitter, paths []string, dryRun bool) summary {
	var sum summary
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			log.Printf("skipping %s: not a readable file", path)
			sum.Skipped++
			continue
		}

		if dryRun {
			log.Printf("dry-run: would upload %s (%d bytes)", path, info.Size())
			sum.Skipped++
			continue
		}

		ack, err := uploadFile(ctx, sub, path)
		if err != nil {
			log.Printf("upload %s failed: %v", path, err)
			sum.Failed++
			continue
		}
		log.Printf("uploaded %s: %s", path, ack.Message)
		sum.Uploaded++
		sum.Records += ack.Count
	}
	return sum
}

func uploadFile(ctx context.Context, sub submitter, path string) (upload.Ack, error) {
	f, err := os.Open(path)
	if err != nil {
		return upload.Ack{}, err
	}
	defer f.Close()

	return sub.Upload(ctx, &upload.File{Name: filepath.Base(path), Content: f})
}
