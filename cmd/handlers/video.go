package handlers

import (
	"context"
	"fmt"
	"io"

	"ghostwriter/internal/config"
	"ghostwriter/internal/core"
	"ghostwriter/internal/video"

	"github.com/spf13/cobra"
)

// NewVideoCmd creates the video command group
func NewVideoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Generate teaser videos for saved articles",
	}
	cmd.AddCommand(newVideoStartCmd())
	cmd.AddCommand(newVideoPollCmd())
	return cmd
}

func newVideoStartCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start generating a teaser video and wait for it",
		Long: `Start generating a teaser video for an article.

The command polls until every pending video has finished. With --detach it
returns as soon as the generation is accepted; resume polling later with
'ghostwriter video poll'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			poller, err := ws.poller(cmd.Context())
			if err != nil {
				return err
			}
			a, err := ws.library.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := poller.Start(cmd.Context(), a); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎬 Video generation started for article %d\n", id)
			if detach {
				fmt.Fprintln(out, "💡 Use 'ghostwriter video poll' to collect the result")
				return nil
			}
			return waitForVideos(cmd.Context(), ws, poller, out, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "Return without waiting for the video")
	return cmd
}

func newVideoPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Poll pending video generations until they finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			poller, err := ws.poller(cmd.Context())
			if err != nil {
				return err
			}
			running, err := poller.Resume(cmd.Context())
			if err != nil {
				return err
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending videos")
				return nil
			}
			return waitForVideos(cmd.Context(), ws, poller, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func (w *workspace) poller(ctx context.Context) (*video.Poller, error) {
	client, err := w.client(ctx)
	if err != nil {
		return nil, err
	}
	interval := config.ParseDuration(w.cfg.Video.PollInterval, video.DefaultPollInterval)
	return video.NewPoller(client, w.library, interval, w.cfg.Pipeline.VideoAspectRatio), nil
}

func waitForVideos(ctx context.Context, ws *workspace, poller *video.Poller, out, errOut io.Writer) error {
	if err := withSpinner(errOut, "Waiting for videos", func() error { return poller.Wait(ctx) }); err != nil {
		return err
	}

	articles, err := ws.library.List(ctx)
	if err != nil {
		return err
	}
	printVideoResults(out, articles)
	return nil
}

func printVideoResults(out io.Writer, articles []*core.Article) {
	for _, a := range articles {
		if a.Video == nil {
			continue
		}
		switch a.Video.Status {
		case core.VideoCompleted:
			fmt.Fprintf(out, "✅ %d %s: %s\n", a.ID, a.Title, a.Video.URL)
		case core.VideoFailed:
			fmt.Fprintf(out, "❌ %d %s: %s\n", a.ID, a.Title, a.Video.Error)
		}
	}
}
