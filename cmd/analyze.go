package cmd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/pipeline"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/report"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaXLSXPath   string
	anaChartsDir  string
	anaRefresh    bool
	anaNoCharts   bool
	anaJSON       bool
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis pipeline and print a report",
	Long: `Loads the cleaned cache, the source dataset or a synthetic one (in that
order), cleans it, and prints statistics, outliers and the classifier summary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := pipeline.NewAnalyzer(cfg, logger)
		if anaRefresh {
			if err := a.Provider().Invalidate(); err != nil {
				return err
			}
		}
		opt := a.Options()
		opt.SkipCharts = anaNoCharts || anaChartsDir == ""
		a.SetOptions(opt)

		out := cmd.OutOrStdout()
		if !anaQuiet && !anaJSON {
			fmt.Fprintln(out, "SWIGGY DATA ANALYSIS PIPELINE")
		}
		res, err := a.Analyze(cmd.Context())
		if err != nil {
			if errors.Is(err, dataset.ErrSourceNotFound) {
				return fmt.Errorf("%w (enable synthesize_missing or pass --data)", err)
			}
			return err
		}

		if anaChartsDir != "" && !anaNoCharts {
			n, err := writeCharts(anaChartsDir, res)
			if err != nil {
				return err
			}
			if !anaQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d charts to %s\n", n, anaChartsDir)
			}
		}
		if anaXLSXPath != "" {
			if err := report.WriteWorkbook(anaXLSXPath, res.Workbook()); err != nil {
				return err
			}
			if !anaQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote workbook to %s\n", anaXLSXPath)
			}
		}

		var body []byte
		if anaJSON {
			b, err := utils.PrettyJSON(summarize(res))
			if err != nil {
				return err
			}
			body = append(b, '\n')
		} else {
			body = []byte(res.Document().String())
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !anaQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote analysis to %s\n", anaOutputPath)
			}
		} else {
			fmt.Fprint(out, string(body))
		}
		if !anaQuiet && !anaJSON {
			fmt.Fprintf(out, "\nPIPELINE COMPLETED SUCCESSFULLY 🎉 (%d orders in %s)\n", res.Orders, res.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report instead of stdout")
	analyzeCmd.Flags().StringVar(&anaXLSXPath, "xlsx", "", "optional path to export the tables as an XLSX workbook")
	analyzeCmd.Flags().StringVar(&anaChartsDir, "charts", "", "directory to write chart PNGs into")
	analyzeCmd.Flags().BoolVar(&anaRefresh, "refresh", false, "drop the cleaned cache and reload the source")
	analyzeCmd.Flags().BoolVar(&anaNoCharts, "no-charts", false, "skip chart rendering even when --charts is set")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print key figures as JSON instead of the report")
	analyzeCmd.Flags().BoolVarP(&anaQuiet, "quiet", "q", false, "suppress banner and progress lines")
}

// writeCharts saves every rendered chart as <dir>/<name>.png.
func writeCharts(dir string, res *pipeline.Result) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create charts dir: %w", err)
	}
	n := 0
	for _, c := range res.Charts() {
		if len(c.PNG) == 0 {
			if c.Err != "" {
				logger.Warn("chart skipped", "chart", c.Name, "reason", c.Err)
			}
			continue
		}
		if err := utils.SafeWriteFile(filepath.Join(dir, c.Name+".png"), c.PNG); err != nil {
			return n, fmt.Errorf("write chart %s: %w", c.Name, err)
		}
		n++
	}
	return n, nil
}

type analysisJSON struct {
	RunID              string   `json:"run_id"`
	Origin             string   `json:"origin"`
	Orders             int      `json:"orders"`
	MeanOrderValue     *float64 `json:"mean_order_value,omitempty"`
	MedianOrderValue   *float64 `json:"median_order_value,omitempty"`
	StdDeliveryTime    *float64 `json:"std_delivery_time,omitempty"`
	LateProbability    *float64 `json:"late_probability,omitempty"`
	OutlierCount       *int     `json:"outlier_count,omitempty"`
	ClassifierAccuracy *float64 `json:"classifier_accuracy,omitempty"`
}

func summarize(res *pipeline.Result) analysisJSON {
	out := analysisJSON{RunID: res.RunID, Origin: string(res.Origin), Orders: res.Orders}
	if k := res.Key; k != nil {
		out.MeanOrderValue = finite(k.MeanOrderValue)
		out.MedianOrderValue = finite(k.MedianOrderValue)
		out.StdDeliveryTime = finite(k.StdDeliveryTime)
	}
	if res.LateShare != nil {
		out.LateProbability = finite(stats.Round2(*res.LateShare))
	}
	if res.Outliers != nil {
		n := res.Outliers.OutlierCount
		out.OutlierCount = &n
	}
	if res.Model != nil {
		out.ClassifierAccuracy = finite(res.Model.Accuracy)
	}
	return out
}

// finite drops NaN and Inf, which encoding/json rejects.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
