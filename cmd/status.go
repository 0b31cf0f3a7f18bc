package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the vector collection",
	Long:  `Reports whether the configured collection exists, its vector size and how many chunks it holds.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

type collectionStatus struct {
	Store      string `json:"store"`
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
	Dimensions int    `json:"dimensions,omitempty"`
	Count      int    `json:"count"`
	Embedder   string `json:"embedding_model"`
	WantDims   int    `json:"embedding_dimensions"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := createStoreFromConfig(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	st := collectionStatus{
		Store:      string(cfg.Store.Type),
		Collection: cfg.Store.Collection,
		Embedder:   string(cfg.EmbeddingProvider) + "/" + cfg.EmbeddingModel,
		WantDims:   cfg.EmbeddingDimensions,
	}
	if st.Exists, err = store.CollectionExists(ctx, st.Collection); err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if st.Exists {
		if st.Dimensions, err = store.CollectionDimension(ctx, st.Collection); err != nil {
			return fmt.Errorf("inspecting collection: %w", err)
		}
		if st.Count, err = store.Count(ctx, st.Collection); err != nil {
			return fmt.Errorf("counting collection: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "Store:      %s\n", st.Store)
	fmt.Fprintf(out, "Collection: %s\n", st.Collection)
	if !st.Exists {
		fmt.Fprintln(out, "Status:     not created (run `edwin ingest`)")
		return nil
	}
	fmt.Fprintf(out, "Dimensions: %d\n", st.Dimensions)
	fmt.Fprintf(out, "Chunks:     %d\n", st.Count)
	fmt.Fprintf(out, "Embedder:   %s\n", st.Embedder)
	if st.WantDims > 0 && st.WantDims != st.Dimensions {
		fmt.Fprintf(out, "Warning:    embedding_dimensions is %d; queries will fail until you re-index\n", st.WantDims)
	}
	return nil
}
