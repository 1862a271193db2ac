package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/faceengine"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Enroll faces from image files",
	Long: `Enroll one face per image from a directory of JPEG or PNG files, in file
name order. Images without a usable face are skipped. Enrollment stops when
the gallery is full.

Requires a persistent gallery store (GALLERY_STORE=file, postgres or mariadb).
Do not run this while the server is using the same store.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("dry-run", false, "Detect faces without enrolling them")
	importCmd.Flags().Int("limit", 0, "Enroll at most this many faces (0 = until full)")
}

// importResult counts the outcome of an import run.
type importResult struct {
	enrolled int
	skipped  int
	failed   int
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	dryRun := mustGetBool(cmd, "dry-run")
	limit := mustGetInt(cmd, "limit")

	files, err := camera.ListImages(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	engine := faceengine.NewInsightFace(cfg.Engine)
	g, store, err := openPersistentGallery(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Gallery has %d of %d faces, importing from %d images\n", g.Count(), g.Capacity(), len(files))
	if dryRun {
		fmt.Println("Dry run, nothing will be enrolled")
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var res importResult
	var problems []string
	for _, path := range files {
		if limit > 0 && res.enrolled >= limit {
			break
		}

		embedding, err := embedFile(ctx, engine, path, cfg.Camera.MaxWidth)
		switch {
		case errors.Is(err, errNoFace), errors.Is(err, faceengine.ErrAlignmentFailed):
			res.skipped++
			problems = append(problems, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		case err != nil:
			res.failed++
			problems = append(problems, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		case dryRun:
			res.enrolled++
		default:
			id, err := g.Enroll(ctx, embedding)
			if errors.Is(err, gallery.ErrGalleryFull) {
				bar.Finish()
				fmt.Printf("\nGallery is full (%d faces), stopping\n", g.Capacity())
				return printImportSummary(res, problems)
			}
			if err != nil {
				return fmt.Errorf("enrolling %s: %w", path, err)
			}
			res.enrolled++
			bar.Describe(fmt.Sprintf("Enrolled face ID %d", id))
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	return printImportSummary(res, problems)
}

var errNoFace = errors.New("no face detected")

// embedFile extracts the embedding of the first face in an image file.
func embedFile(ctx context.Context, engine faceengine.Engine, path string, maxWidth int) (gallery.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	frame, err := camera.NewFrame(data, maxWidth, time.Now())
	if err != nil {
		return nil, err
	}

	regions, err := engine.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, errNoFace
	}
	return engine.ExtractEmbedding(ctx, frame, regions[0])
}

func printImportSummary(res importResult, problems []string) error {
	for _, p := range problems {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("Enrolled: %d, skipped: %d, failed: %d\n", res.enrolled, res.skipped, res.failed)
	if res.failed > 0 {
		return fmt.Errorf("%d images failed", res.failed)
	}
	return nil
}
