package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/publication"
	"github.com/slowvak/midel/internal/render"
)

var (
	renderOutput string
	renderTitle  string
)

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write HTML to file instead of stdout")
	renderCmd.Flags().StringVar(&renderTitle, "title", render.DefaultTitle, "Page heading")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the publications list as static HTML",
	Long: `Render the publications list as a static HTML page without filter,
login or submission controls.

If the catalog cannot be loaded, the page carries only the load error
message and the command exits with code 3.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	p := render.Page{Title: renderTitle, Static: true}
	c, _, loadErr := publication.Load(cfg.Catalog(root))
	if loadErr != nil {
		p.Error = render.LoadErrorMessage
	} else {
		p.View = catalog.Build(c)
	}

	out, err := render.HTML(p)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if renderOutput == "" {
		_, _ = os.Stdout.WriteString(out)
	} else if err := os.WriteFile(renderOutput, []byte(out), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", renderOutput, err)
	}

	if loadErr != nil {
		if renderOutput == "" {
			outputError(ExitDataError, "loading catalog: %v", loadErr)
			os.Exit(ExitDataError)
		}
		exitWithError(ExitDataError, "loading catalog: %v", loadErr)
	}
	if renderOutput != "" {
		if humanOutput {
			outputHuman("Rendered %d publications to %s\n", c.Len(), renderOutput)
		} else {
			outputJSON(StatusResponse{Status: "rendered", Path: renderOutput})
		}
	}
	return nil
}
