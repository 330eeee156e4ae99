package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbaumgartner/flipradar/pkg/evaluate"
	"github.com/mbaumgartner/flipradar/pkg/extract"
	"github.com/mbaumgartner/flipradar/pkg/pricing"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

var (
	evalPrice       float64
	evalCategory    string
	evalDescription string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [title]",
	Short: "Dry-run the classification pipeline on a listing title",
	Long: "Runs normalization, numeric token classification, bundle " +
		"classification and the decision gate on a single title without " +
		"touching the store, the marketplace or the oracle. With --price " +
		"the asking-price heuristic and evaluation run too.",
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().Float64Var(&evalPrice, "price", 0, "asking price in CHF")
	evaluateCmd.Flags().StringVar(&evalCategory, "category", "", "category hint")
	evaluateCmd.Flags().StringVar(&evalDescription, "description", "", "listing description text")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(_ *cobra.Command, args []string) error {
	title := args[0]

	normalized := extract.Normalize(title, evalCategory)
	interps := extract.ClassifyNumericTokens(title)
	classification := extract.ClassifyBundle(normalized, evalDescription, interps)

	gate, err := extract.AdvanceGate(domain.GateInitial, classification)
	if err != nil {
		return fmt.Errorf("advancing gate: %w", err)
	}

	fmt.Printf("title:       %s\n", title)
	fmt.Printf("normalized:  %s\n", normalized)
	fmt.Printf("bundle type: %s (confidence %.2f)\n", classification.Type, classification.Confidence)
	for _, comp := range classification.Components {
		fmt.Printf("  component: %dx %s", comp.Quantity, comp.Name)
		if comp.UnitSpec != "" {
			fmt.Printf(" [%s]", comp.UnitSpec)
		}
		fmt.Println()
	}
	fmt.Printf("gate:        %s\n", gate)

	if gate != domain.GateReadyForPricing {
		return nil
	}

	identity := extract.BuildIdentity(normalized, evalCategory)
	fmt.Printf("identity:    %s\n", extract.IdentityKey(identity))

	if evalPrice <= 0 {
		return nil
	}

	components := classification.Components
	if classification.Type == domain.BundleSingleItem && len(components) == 0 {
		components = []domain.BundleComponent{{Name: normalized, Quantity: 1}}
	}

	// Offline there are no market observations, so pricing is only
	// meaningful for a sole component via the asking-price heuristic.
	if len(components) == 1 && components[0].Quantity <= 1 {
		agg := pricing.NewAggregator()
		est := agg.Aggregate(pricing.AggregateInput{
			AskingPrice: evalPrice,
			Category:    evalCategory,
		})
		components[0].ResalePrice = est.Amount
		components[0].PriceSource = est.Source
		fmt.Printf("resale est:  %.2f CHF (%s)\n", est.Amount, est.Source)
	}

	res := evaluate.NewEvaluator().Evaluate(evaluate.Input{
		IdentityKey:  extract.IdentityKey(identity),
		Bundle:       classification,
		GateState:    gate,
		PurchaseCost: evalPrice,
		Components:   components,
	})

	fmt.Printf("verdict:     %s", res.Strategy)
	if res.SkipReason != "" {
		fmt.Printf(" (%s)", res.SkipReason)
	}
	fmt.Println()
	fmt.Printf("profit:      %.2f CHF (resale %.2f, fees %.2f)\n",
		res.ExpectedProfit, res.TotalResale, res.Fees)

	return nil
}
