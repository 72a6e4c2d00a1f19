package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryashah/portfolio/content"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "Personal portfolio site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := loadConfig(v, cfgPath); err != nil {
				return err
			}
			if err := checkConfig(v); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			*cfg = configFromViper(v)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (yaml|toml|json)")

	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newExportCmd(cfg))
	cmd.AddCommand(newRenderCmd(cfg))
	return cmd
}

func newServeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(cfg.GinMode)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			site, err := content.LoadSite(cfg.ContentFile)
			if err != nil {
				return err
			}

			var store *VisitorStore
			if cfg.Analytics.Enabled {
				store, err = OpenVisitorStore(ctx, cfg.DBPath)
				if err != nil {
					return err
				}
				defer store.Close()
				go runRetention(ctx, store, time.Duration(cfg.Analytics.RetentionDays)*24*time.Hour)
				log.Println("Privacy: visitor tracking enabled with hashed IP addresses")
			}

			srv, err := NewServer(*cfg, site, store, newSMTPMailer(cfg.SMTP, site.Owner.Email))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}

func newExportCmd(cfg *Config) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the site as static HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := content.LoadSite(cfg.ContentFile)
			if err != nil {
				return err
			}
			tmpl, err := parseTemplates()
			if err != nil {
				return err
			}
			opts.Stars = cfg.GitHub.FallbackStars
			if err := exportSite(site, newRenderer(site, cfg.ExtraEmoji), tmpl, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sections to %s\n", len(site.Sections), opts.OutDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "dist", "output directory")
	cmd.Flags().StringVar(&opts.Base, "base-path", "/", "path prefix the site is hosted under")
	return cmd
}

func newRenderCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Render a content block to HTML, one paragraph per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			site, err := content.LoadSite(cfg.ContentFile)
			if err != nil {
				return err
			}
			r := newRenderer(site, cfg.ExtraEmoji)
			for _, frag := range r.RenderBlock(string(data)) {
				fmt.Fprintf(cmd.OutOrStdout(), "<p>%s</p>\n", frag.HTML())
			}
			return nil
		},
	}
}
