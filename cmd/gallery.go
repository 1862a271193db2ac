package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/database"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the enrolled face gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled faces",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryDeleteLastCmd = &cobra.Command{
	Use:   "delete-last",
	Short: "Delete the most recently enrolled face",
	Long: `Delete the most recently enrolled face from the persistent gallery.
Do not run this while the server is using the same store.`,
	Args: cobra.NoArgs,
	RunE: runGalleryDeleteLast,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryDeleteLastCmd)
}

// openGallery builds the gallery and restores it from the configured store.
// The returned store is nil for the memory driver.
func openGallery(ctx context.Context, cfg *config.Config, matcher gallery.Matcher) (*gallery.Gallery, database.Store, error) {
	g := gallery.New(cfg.Gallery.Capacity, matcher)

	store, err := database.Open(ctx, cfg.Gallery)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gallery store: %w", err)
	}
	if store == nil {
		return g, nil, nil
	}

	if err := g.Restore(ctx, store); err != nil {
		store.Close()
		return nil, nil, err
	}
	return g, store, nil
}

// openPersistentGallery is openGallery for commands that make no sense
// without a persistent store.
func openPersistentGallery(ctx context.Context, cfg *config.Config) (*gallery.Gallery, database.Store, error) {
	g, store, err := openGallery(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("GALLERY_STORE is memory; set it to file, postgres or mariadb")
	}
	return g, store, nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	g, store, err := openPersistentGallery(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	templates := g.Templates()
	fmt.Printf("Store: %s, %d of %d faces enrolled\n", cfg.Gallery.Store, len(templates), g.Capacity())
	for _, t := range templates {
		fmt.Printf("  %3d  %s  dim=%d\n", t.ID, t.EnrolledAt.Local().Format("2006-01-02 15:04:05"), len(t.Embedding))
	}
	return nil
}

func runGalleryDeleteLast(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	g, store, err := openPersistentGallery(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := g.DeleteLast(ctx)
	if errors.Is(err, gallery.ErrGalleryEmpty) {
		fmt.Println("No faces to delete")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted face ID %d\n", id)
	return nil
}
