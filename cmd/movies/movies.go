// Package movies implements the tracked movie management commands.
package movies

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/scraper"
)

var movieIDPattern = regexp.MustCompile(`^tt\d{7,8}$`)

// Command creates the movies command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "Manage tracked movies",
	}
	cmd.AddCommand(addCommand(settings), removeCommand(settings), listCommand(settings))
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "add <movie-id>",
		Short: "Track a movie",
		Long:  "Verifies the movie exists on IMDb and registers it. Its reviews are fetched and classified on the next scan.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID := args[0]
			if !movieIDPattern.MatchString(movieID) {
				return fmt.Errorf("invalid movie id %q, expected the IMDb tt format", movieID)
			}

			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetMovie(movieID)
			if err != nil {
				return err
			}
			if existing != nil {
				fmt.Printf("%s is already tracked (%s)\n", movieID, existing.Title)
				return nil
			}

			title, releaseDate, err := scraper.NewIMDb(settings).Metadata(cmd.Context(), movieID)
			if err != nil {
				return err
			}
			if err := store.InsertMovie(&datastore.Movie{
				ID:          movieID,
				Title:       title,
				ReleaseDate: releaseDate,
			}); err != nil {
				return err
			}
			fmt.Printf("tracking %s (%s)\n", movieID, title)
			return nil
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <movie-id>",
		Short: "Stop tracking a movie",
		Long:  "Removes the movie and all of its reviews and sentiment values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID := args[0]

			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			movie, err := store.GetMovie(movieID)
			if err != nil {
				return err
			}
			if movie == nil {
				return fmt.Errorf("%s is not tracked", movieID)
			}
			if err := store.DeleteMovie(movieID); err != nil {
				return err
			}
			fmt.Printf("removed %s (%s)\n", movieID, movie.Title)
			return nil
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked movies",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			movies, err := store.GetAllMovies()
			if err != nil {
				return err
			}
			if len(movies) == 0 {
				fmt.Println("no tracked movies")
				return nil
			}
			for i := range movies {
				m := &movies[i]
				lastScrape := "never"
				if !m.LastScrape.IsZero() {
					lastScrape = m.LastScrape.Format("2006-01-02 15:04")
				}
				fmt.Printf("%-11s %-40s %5d reviews  last scrape %s\n",
					m.ID, m.Title, m.ReviewCount, lastScrape)
			}
			return nil
		},
	}
}
