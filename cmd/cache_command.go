package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marte113/Player-On-Caption/internal/persistence"
	"github.com/marte113/Player-On-Caption/internal/subtitle"
	"github.com/marte113/Player-On-Caption/pkg/file"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the translation cache",
	}
	cmd.AddCommand(newCacheListCommand(ctx))
	cmd.AddCommand(newCacheShowCommand(ctx))
	cmd.AddCommand(newCacheDeleteCommand(ctx))
	cmd.AddCommand(newCacheExportCommand(ctx))
	return cmd
}

func (c *commandContext) withStore(fn func(*persistence.SQLiteStore) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached lectures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *persistence.SQLiteStore) error {
				items, err := store.ListTranslations(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No cached translations")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.Title,
						item.Provider,
						item.TargetLanguage,
						fmt.Sprintf("%d/%d", item.TranslatedCount, item.LineCount),
						item.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Title", "Provider", "Target", "Lines", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show TITLE",
		Short: "Show the cached pairs of a lecture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *persistence.SQLiteStore) error {
				entry, ok, err := store.GetTranslation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no cached translation for %q", args[0])
				}
				pairs := entry.Map.Pairs()
				rows := make([][]string, 0, len(pairs))
				for i, p := range pairs {
					rows = append(rows, []string{strconv.Itoa(i + 1), p.Source, p.Target})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Source", "Translation"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TITLE",
		Short: "Remove a lecture from the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *persistence.SQLiteStore) error {
				removed, err := store.DeleteTranslation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no cached translation for %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
				return nil
			})
		},
	}
}

func newCacheExportCommand(ctx *commandContext) *cobra.Command {
	var srtPath, outPath string

	cmd := &cobra.Command{
		Use:   "export TITLE",
		Short: "Write a bilingual SRT from a caption track and a cached translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := subtitle.ReadFile(srtPath)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = file.ReplaceExt(srtPath, ".bilingual.srt")
			}
			return ctx.withStore(func(store *persistence.SQLiteStore) error {
				entry, ok, err := store.GetTranslation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no cached translation for %q", args[0])
				}
				bilingual, hits := subtitle.Bilingual(track, entry.Map)
				if err := subtitle.WriteFile(outPath, bilingual); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d/%d cues translated)\n", outPath, hits, track.Len())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&srtPath, "srt", "", "Caption track to pair with the translation")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: <srt>.bilingual.srt)")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}
