// Package atlascmder
package atlascmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/canvaslab/atlas/cmd/atlas/config"
	embedcmder "github.com/canvaslab/atlas/cmd/atlas/embed"
	ingestcmder "github.com/canvaslab/atlas/cmd/atlas/ingest"
	projectcmder "github.com/canvaslab/atlas/cmd/atlas/project"
	servecmder "github.com/canvaslab/atlas/cmd/atlas/serve"
	statuscmder "github.com/canvaslab/atlas/cmd/atlas/status"
	thumbscmder "github.com/canvaslab/atlas/cmd/atlas/thumbs"
	versioncmder "github.com/canvaslab/atlas/cmd/version"
)

const atlasLongDesc string = `Atlas turns a folder of paintings into an explorable scatter plot.

Work through the pipeline using:
  atlas ingest     Register dataset images in the database
  atlas embed      Fetch image embeddings for pending items
  atlas project    Reduce embeddings to 2D coordinates
  atlas serve      Serve points, status, and the viewer over HTTP`

const atlasShortDesc string = "Atlas - image embedding maps"

func NewAtlasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atlas",
		Short: atlasShortDesc,
		Long:  atlasLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(embedcmder.NewEmbedCmd())
	cmd.AddCommand(projectcmder.NewProjectCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(thumbscmder.NewThumbsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
