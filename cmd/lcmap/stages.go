package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rwageo/lcmaplib"
	"github.com/rwageo/lcmaplib/utils"

	"github.com/spf13/cobra"
)

var (
	outPath    string
	shpOut     string
	refTable   string
	vecClasses string
	sampleCmd  = &cobra.Command{
		Use:   "sample <reference.tif>",
		Short: "draw stratified training points from a reference map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outOrDefault(args[0], "samples", ".csv")
			grid, err := toolbox.ReadCategoricalRaster(args[0])
			if err != nil {
				return err
			}
			sc := cfg.Sampling
			if sc.Excluded == 0 {
				sc.Excluded = cfg.NoData
			}
			pts, rep, err := lcmaplib.Sample(grid, sc)
			if err != nil {
				return err
			}
			printSampleReport(rep)
			if err = lcmaplib.WriteSamplePointsCSV(pts, out); err != nil {
				return err
			}
			if shpOut != "" {
				return toolbox.WritePointShapefile(shpOut, grid.Srid, pts)
			}
			return nil
		},
	}

	extractCmd = &cobra.Command{
		Use:   "extract <points.csv>",
		Short: "extract feature vectors for sample points from composite rasters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pts, err := lcmaplib.ReadSamplePointsCSV(args[0])
			if err != nil {
				return err
			}
			table, rep, err := toolbox.ExtractFeatures(cfg.Extract.Sources, pts, cfg.Extract.Workers)
			if err != nil {
				return err
			}
			fmt.Printf("extracted %d/%d points (%d on nodata, %d off grid)\n",
				rep.Kept, rep.Points, rep.Dropped, rep.OffGrid)
			return lcmaplib.WriteFeatureTable(table, outOrDefault(args[0], "features", ".csv"))
		},
	}

	filterCmd = &cobra.Command{
		Use:   "filter <candidates.csv>",
		Short: "drop candidate samples in minority feature-space clusters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cand, err := lcmaplib.ReadFeatureTable(args[0])
			if err != nil {
				return err
			}
			ref, err := lcmaplib.ReadFeatureTable(refTable)
			if err != nil {
				return err
			}
			kept, rep, err := lcmaplib.FilterLabels(cand, ref, cfg.Cluster)
			if err != nil {
				return err
			}
			printClusterReport(rep)
			return lcmaplib.WriteFeatureTable(kept, outOrDefault(args[0], "filtered", ".csv"))
		},
	}

	reclassCmd = &cobra.Command{
		Use:   "reclass <prediction.tif>",
		Short: "apply the ordered correction rules to a predicted map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := toolbox.ReadCategoricalRaster(args[0])
			if err != nil {
				return err
			}
			if err = unzipMaskDeliveries(); err != nil {
				return err
			}
			masks, err := toolbox.BuildMasks(cfg.Reclass.Masks, grid)
			if err != nil {
				return err
			}
			bg := cfg.Reclass.Background
			if bg == 0 {
				bg = lcmaplib.DEFAULT_BACKGROUND
			}
			out, rep, err := lcmaplib.ApplyRules(grid, cfg.Reclass.Rules, masks, bg)
			if err != nil {
				return err
			}
			printRuleReport(rep)
			return toolbox.WriteCategoricalRaster(out, outOrDefault(args[0], "final", ".tif"))
		},
	}

	vectorizeCmd = &cobra.Command{
		Use:   "vectorize <final.tif>",
		Short: "polygonize and simplify the final map for vector delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := toolbox.ReadCategoricalRaster(args[0])
			if err != nil {
				return err
			}
			classes := cfg.Classes
			if vecClasses != "" {
				var codes []uint8
				for _, c := range utils.StrArrToInts(strings.Split(vecClasses, ",")) {
					if c >= 0 && c <= 255 {
						codes = append(codes, uint8(c))
					}
				}
				if classes = classes.Subset(codes); len(classes) == 0 {
					return fmt.Errorf("no configured class matches --classes %q", vecClasses)
				}
			}
			return toolbox.Vectorize(grid, classes, outOrDefault(args[0], "polygons", lcmaplib.FILE_EXT_SHP), cfg.Vectorize.Tolerance)
		},
	}
)

// outOrDefault derives a timestamped output path next to the input when
// --out is not given.
func outOrDefault(in, stage, ext string) string {
	if outPath != "" {
		return outPath
	}
	return fmt.Sprintf("%s_%s_%s%s", utils.GetFilenameWithoutExt(in), stage, utils.GetNowTimeTag(), ext)
}

func init() {
	sampleCmd.Flags().StringVarP(&outPath, "out", "o", "", "output point csv (default derived from the input name)")
	sampleCmd.Flags().StringVar(&shpOut, "shp", "", "also write points as a shapefile")
	extractCmd.Flags().StringVarP(&outPath, "out", "o", "", "output feature table (default derived from the input name)")
	filterCmd.Flags().StringVarP(&outPath, "out", "o", "", "output feature table (default derived from the input name)")
	filterCmd.Flags().StringVar(&refTable, "reference", "reference_features.csv", "reference feature table")
	reclassCmd.Flags().StringVarP(&outPath, "out", "o", "", "output raster (default derived from the input name)")
	vectorizeCmd.Flags().StringVarP(&outPath, "out", "o", "", "output shapefile (default derived from the input name)")
	vectorizeCmd.Flags().StringVar(&vecClasses, "classes", "", "comma separated class codes to vectorize (default all)")
}

// unzipMaskDeliveries expands zipped shapefile deliveries in place so the
// mask builder only ever sees .shp paths.
func unzipMaskDeliveries() error {
	for i := range cfg.Reclass.Masks {
		m := &cfg.Reclass.Masks[i]
		if m.Kind != "vector" || !strings.HasSuffix(m.Vector.Path, utils.FILE_EXT_ZIP) {
			continue
		}
		dir, err := utils.GetUniqSubDir(tmpDir)
		if err != nil {
			return err
		}
		shp, _, err := utils.GetShpInZip(m.Vector.Path, dir)
		if err != nil {
			return err
		}
		m.Vector.Path = shp
	}
	return nil
}

func printSampleReport(rep *lcmaplib.SampleReport) {
	codes := make([]int, 0, len(rep.PerClass))
	for c := range rep.PerClass {
		codes = append(codes, int(c))
	}
	sort.Ints(codes)
	for _, c := range codes {
		s := rep.PerClass[uint8(c)]
		fmt.Printf("class %3d (%s): population %d, quota %d, drawn %d\n",
			c, cfg.Classes.NameOf(uint8(c)), s.Population, s.Quota, s.Drawn)
	}
	fmt.Printf("total points: %d\n", rep.Total)
}

func printClusterReport(rep *lcmaplib.ClusterReport) {
	codes := make([]int, 0, len(rep.PerClass))
	for c := range rep.PerClass {
		codes = append(codes, int(c))
	}
	sort.Ints(codes)
	for _, c := range codes {
		s := rep.PerClass[uint8(c)]
		fmt.Printf("class %3d (%s): k=%d score=%.3f kept=%d dropped=%d\n",
			c, cfg.Classes.NameOf(uint8(c)), s.K, s.Score, s.Kept, s.Dropped)
	}
	fmt.Printf("kept %d, dropped %d\n", rep.Kept, rep.Dropped)
}

func printRuleReport(rep *lcmaplib.RuleReport) {
	for _, r := range rep.Rules {
		fmt.Printf("rule %q: matched %d, changed %d", r.Name, r.Matched, r.Changed)
		if r.Filled > 0 || r.Unfilled > 0 {
			fmt.Printf(", filled %d, unfilled %d", r.Filled, r.Unfilled)
		}
		fmt.Println()
	}
	if rep.Background > 0 {
		fmt.Printf("warning: %d background pixels remain in the output\n", rep.Background)
	}
}
