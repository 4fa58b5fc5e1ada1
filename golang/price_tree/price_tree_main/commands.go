package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tarstars/censored_price_tree/golang/price_tree/asim"
	"github.com/tarstars/censored_price_tree/golang/price_tree/ptl"
	"go.uber.org/zap"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate censored records from a simulated exchange",
	Long:  "Runs sealed-bid auctions among simulated competitors and stores the view of one competitor as a record matrix.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")

		params := cfg.Simulator.ExchangeParams
		params.Logger = zap.L()
		exchange, err := asim.NewExchange(params)
		if err != nil {
			return err
		}
		exchange.GenerateBids(cfg.Simulator.NumBids)

		records, err := exchange.CensoredRecords(cfg.Simulator.Competitor)
		if err != nil {
			return err
		}
		if err := ptl.WriteRecords(out, records); err != nil {
			return err
		}
		zap.L().Info("records written",
			zap.String("file", out),
			zap.Int("records", len(records)),
			zap.Int("attributes", exchange.NumAttributes()),
		)
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Grow a price tree over a record matrix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recordsFile, _ := cmd.Flags().GetString("records")
		modelFile, _ := cmd.Flags().GetString("model")
		graphFile, _ := cmd.Flags().GetString("graph")

		records, err := ptl.ReadRecords(recordsFile)
		if err != nil {
			return err
		}
		tree, err := ptl.Train(records, cfg.Tree, zap.L())
		if err != nil {
			return err
		}
		if err := tree.Save(modelFile); err != nil {
			return err
		}
		zap.L().Info("model saved", zap.String("file", modelFile), zap.Int("leaves", len(tree.LeafNodes)))

		if graphFile != "" {
			return renderGraphFile(tree, graphFile, "svg")
		}
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict market price distributions for a feature matrix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		modelFile, _ := cmd.Flags().GetString("model")
		featuresFile, _ := cmd.Flags().GetString("features")
		out, _ := cmd.Flags().GetString("out")

		tree, err := ptl.LoadModel(modelFile)
		if err != nil {
			return err
		}
		features, err := ptl.ReadNpy(featuresFile)
		if err != nil {
			return err
		}
		prediction, err := tree.PredictMatrix(features)
		if err != nil {
			return err
		}
		if err := ptl.WriteNpy(out, prediction); err != nil {
			return err
		}
		h, w := prediction.Dims()
		zap.L().Info("prediction written", zap.String("file", out), zap.Int("rows", h), zap.Int("bins", w))
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render a stored tree with graphviz",
	RunE: func(cmd *cobra.Command, _ []string) error {
		modelFile, _ := cmd.Flags().GetString("model")
		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")

		tree, err := ptl.LoadModel(modelFile)
		if err != nil {
			return err
		}
		return renderGraphFile(tree, out, format)
	},
}

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print a stored tree as text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		modelFile, _ := cmd.Flags().GetString("model")

		tree, err := ptl.LoadModel(modelFile)
		if err != nil {
			return err
		}
		return tree.Render(cmd.OutOrStdout())
	},
}

func renderGraphFile(tree *ptl.PriceTree, fileName, format string) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return eris.Wrapf(err, "create %s", fileName)
	}
	if err := tree.RenderGraph(dst, format); err != nil {
		_ = dst.Close()
		return err
	}
	return eris.Wrapf(dst.Close(), "close %s", fileName)
}

func init() {
	simulateCmd.Flags().String("out", "records.npy", "record matrix to write")
	simulateCmd.Flags().Int("bids", 0, "number of auctions (simulator.num_bids)")
	simulateCmd.Flags().Int("competitor", 0, "competitor whose view is stored (simulator.competitor)")
	simulateCmd.Flags().Int64("seed", 0, "random seed (simulator.seed)")
	bindFlag(simulateCmd, "simulator.num_bids", "bids")
	bindFlag(simulateCmd, "simulator.competitor", "competitor")
	bindFlag(simulateCmd, "simulator.seed", "seed")

	trainCmd.Flags().String("records", "records.npy", "record matrix to train on")
	trainCmd.Flags().String("model", "model.json", "where to store the tree")
	trainCmd.Flags().String("graph", "", "optional svg rendering of the tree")
	trainCmd.Flags().Int("max-height", 0, "tree.max_height")
	trainCmd.Flags().Int("min-leaf-size", 0, "tree.min_leaf_size")
	trainCmd.Flags().Int("num-categories", 0, "tree.num_categories")
	trainCmd.Flags().Int("num-price-bins", 0, "tree.num_price_bins")
	trainCmd.Flags().StringSlice("is-discrete", nil, "tree.is_discrete, one true/false per attribute")
	trainCmd.Flags().String("divergence", "", "tree.divergence: squared or area-based")
	trainCmd.Flags().String("censoring", "", "tree.censoring: right-censored or interval-censored")
	trainCmd.Flags().String("convention", "", "tree.convention: loss-bracketed or both-bracketed")
	trainCmd.Flags().Int64("seed", 0, "tree.seed")
	trainCmd.Flags().Int("threads", 0, "tree.threads_num")
	bindFlag(trainCmd, "tree.max_height", "max-height")
	bindFlag(trainCmd, "tree.min_leaf_size", "min-leaf-size")
	bindFlag(trainCmd, "tree.num_categories", "num-categories")
	bindFlag(trainCmd, "tree.num_price_bins", "num-price-bins")
	bindFlag(trainCmd, "tree.is_discrete", "is-discrete")
	bindFlag(trainCmd, "tree.divergence", "divergence")
	bindFlag(trainCmd, "tree.censoring", "censoring")
	bindFlag(trainCmd, "tree.convention", "convention")
	bindFlag(trainCmd, "tree.seed", "seed")
	bindFlag(trainCmd, "tree.threads_num", "threads")

	predictCmd.Flags().String("model", "model.json", "stored tree")
	predictCmd.Flags().String("features", "features.npy", "feature matrix, one row per query")
	predictCmd.Flags().String("out", "prediction.npy", "where to store the distributions")

	graphCmd.Flags().String("model", "model.json", "stored tree")
	graphCmd.Flags().String("out", "tree.svg", "output file")
	graphCmd.Flags().String("format", "svg", "png, svg, jpg or dot")

	printCmd.Flags().String("model", "model.json", "stored tree")
}
