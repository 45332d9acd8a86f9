package main

import (
	"fmt"
	"os"

	"github.com/rwageo/lcmaplib"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the one yaml file shared by every stage, so the class map and
// rule set can never drift between them.
type Config struct {
	Classes   lcmaplib.ClassMap      `yaml:"classes"`
	NoData    uint8                  `yaml:"nodata"`
	Sampling  lcmaplib.SampleConfig  `yaml:"sampling"`
	Cluster   lcmaplib.ClusterConfig `yaml:"cluster"`
	Extract   ExtractConfig          `yaml:"extract"`
	Reclass   ReclassConfig          `yaml:"reclass"`
	Vectorize VectorizeConfig        `yaml:"vectorize"`
}

type ExtractConfig struct {
	Workers int                      `yaml:"workers"`
	Sources []lcmaplib.FeatureSource `yaml:"sources"`
}

type ReclassConfig struct {
	Background uint8               `yaml:"background"`
	Masks      []lcmaplib.MaskSpec `yaml:"masks"`
	Rules      []lcmaplib.Rule     `yaml:"rules"`
}

type VectorizeConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

var (
	cfgPath string
	tmpDir  string
	cfg     Config
	toolbox *lcmaplib.GdalToolbox

	rootCmd = &cobra.Command{
		Use:   "lcmap",
		Short: "land-cover map post-processing stages",
		Long: "lcmap runs the training-sample and map post-processing stages of the\n" +
			"land-cover classification pipeline: stratified sampling, feature\n" +
			"extraction, cluster-based label filtering, rule-based reclassification\n" +
			"and vector delivery.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(cfgPath)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if err = yaml.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
			if len(cfg.Classes) == 0 {
				return fmt.Errorf("config defines no classes")
			}
			toolbox = lcmaplib.NewGdalToolbox(tmpDir)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "lcmap.yaml", "pipeline config file")
	rootCmd.PersistentFlags().StringVar(&tmpDir, "tmp", os.TempDir(), "scratch directory")
	rootCmd.AddCommand(sampleCmd, extractCmd, filterCmd, reclassCmd, vectorizeCmd)
}
