package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podline/podline/internal/api"
	"github.com/podline/podline/internal/search"
)

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Browse podcast episodes",
}

var episodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List episodes",
	RunE:  runEpisodesList,
}

var episodesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one episode with its full show notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runEpisodesShow,
}

var episodesSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search episode show notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runEpisodesSearch,
}

func init() {
	episodesListCmd.Flags().Int("page", 1, "page number")
	episodesListCmd.Flags().Bool("json", false, "output as JSON")
	episodesSearchCmd.Flags().Int("limit", 10, "maximum number of results")
	episodesSearchCmd.Flags().Bool("reindex", false, "rebuild the search index from the backend first")
	episodesCmd.AddCommand(episodesListCmd)
	episodesCmd.AddCommand(episodesShowCmd)
	episodesCmd.AddCommand(episodesSearchCmd)
	rootCmd.AddCommand(episodesCmd)
}

func runEpisodesList(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	page, _ := cmd.Flags().GetInt("page")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	episodes, err := client.Episodes(cmd.Context(), page, resolver.ItemsPerPage())
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(episodes)
	}

	if len(episodes) == 0 {
		fmt.Println("No episodes on this page.")
		return nil
	}
	for _, ep := range episodes {
		fmt.Printf("  %s  %-50s %s\n", ep.PublishedAt.Format("2006-01-02"), ep.Title, ep.ID)
	}
	return nil
}

func runEpisodesShow(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	episode, err := client.Episode(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	fmt.Printf("%s\n", episode.Title)
	fmt.Printf("Published: %s\n", episode.PublishedAt.Format("2006-01-02"))
	if episode.Duration > 0 {
		fmt.Printf("Duration:  %dm%02ds\n", episode.Duration/60, episode.Duration%60)
	}
	if episode.AudioURL != "" {
		fmt.Printf("Audio:     %s\n", episode.AudioURL)
	}
	fmt.Printf("\n%s\n", episode.Description)
	return nil
}

func runEpisodesSearch(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)
	ctx := cmd.Context()

	limit, _ := cmd.Flags().GetInt("limit")
	reindex, _ := cmd.Flags().GetBool("reindex")

	token, err := bridge.Token(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	embed := search.BackendEmbeddingFunc(resolver.BackendAPIURL(), token, resolver.EmbeddingModel())
	index, err := search.NewIndex(embed, resolver.DataDir())
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}

	if reindex {
		if err := reindexEpisodes(ctx, client, index, resolver.ItemsPerPage()); err != nil {
			return fmt.Errorf("%s", userMessage(resolver, err))
		}
		fmt.Printf("Indexed %d episode(s).\n", index.Count())
	}

	if index.Count() == 0 {
		fmt.Println("Search index is empty. Run `podline episodes search --reindex` first.")
		return nil
	}

	results, err := index.Search(ctx, args[0], limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d result(s):\n\n", len(results))
	for i, r := range results {
		fmt.Printf("  %d. [%.1f%%] %s\n", i+1, r.Similarity*100, r.Title)
		fmt.Printf("     ID: %s\n", r.EpisodeID)
		if r.Snippet != "" {
			fmt.Printf("     %s\n", r.Snippet)
		}
		fmt.Println()
	}
	return nil
}

// reindexEpisodes pulls every episode page from the backend into the
// index and persists it.
func reindexEpisodes(ctx context.Context, client *api.Client, index *search.Index, perPage int) error {
	for page := 1; ; page++ {
		episodes, err := client.Episodes(ctx, page, perPage)
		if err != nil {
			return err
		}
		if len(episodes) == 0 {
			break
		}
		if err := index.IndexEpisodes(ctx, episodes); err != nil {
			return err
		}
		if perPage > 0 && len(episodes) < perPage {
			break
		}
	}
	return index.Persist()
}
