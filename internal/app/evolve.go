package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/output"
)

var (
	evolveBy         string
	evolveKind       string
	evolveComponents []string
	evolveConsent    bool
	evolvePlan       string
	evolveApprove    bool
	evolveReject     bool

	evolveCmd = &cobra.Command{
		Use:   "evolve",
		Short: "Manage deliberate phase-advance requests",
		Long: `Evolve records deliberate, reviewed phase advances as evolution
requests. Each request carries who asked, what kind of change it is,
which components it targets, whether consent was granted, a declared
rollback plan, and a computed 0-10 risk score.

A request must be approved ('evolve review --approve') before it can be
applied; applying performs a normal one-phase advance with its
before/after snapshot pair.`,
	}

	evolveRequestCmd = &cobra.Command{
		Use:   "request",
		Short: "File an evolution request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if evolveBy == "" {
				return fmt.Errorf("--by is required")
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			req, err := ctrl.RequestEvolution(evolveBy, evolveKind, evolveComponents, evolveConsent, evolvePlan)
			if err != nil {
				return err
			}

			fmt.Printf("Evolution request %s filed (risk %d/10, %s)\n", req.ID, req.RiskScore, req.ReviewStatus)
			if !req.ConsentGranted {
				fmt.Println("Note: consent not granted; the request cannot be applied until re-filed with --consent.")
			}
			return nil
		},
	}

	evolveReviewCmd = &cobra.Command{
		Use:   "review <request-id>",
		Short: "Approve or reject a pending evolution request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if evolveApprove == evolveReject {
				return fmt.Errorf("exactly one of --approve or --reject is required")
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			if err := ctrl.ReviewEvolution(args[0], evolveApprove); err != nil {
				return err
			}

			if evolveApprove {
				fmt.Printf("Evolution request %s approved.\n", args[0])
			} else {
				fmt.Printf("Evolution request %s rejected.\n", args[0])
			}
			return nil
		},
	}

	evolveApplyCmd = &cobra.Command{
		Use:   "apply <request-id>",
		Short: "Apply an approved evolution request (advances one phase)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			if err := ctrl.ApplyEvolution(args[0]); err != nil {
				return err
			}

			fmt.Printf("Evolution applied; now at phase %d.\n", ctrl.Current())
			return nil
		},
	}

	evolveListCmd = &cobra.Command{
		Use:   "list",
		Short: "List evolution requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			reqs, err := eng.store.ListEvolutionRequests()
			if err != nil {
				return err
			}

			fmt.Print(output.RenderEvolutionTable(reqs))
			return nil
		},
	}
)

func init() {
	evolveRequestCmd.Flags().StringVar(&evolveBy, "by", "", "who is requesting the evolution (required)")
	evolveRequestCmd.Flags().StringVar(&evolveKind, "kind", "minor", "change kind: patch, minor, major, or emergency")
	evolveRequestCmd.Flags().StringSliceVar(&evolveComponents, "components", nil, "components the change targets")
	evolveRequestCmd.Flags().BoolVar(&evolveConsent, "consent", false, "consent to the capability change")
	evolveRequestCmd.Flags().StringVar(&evolvePlan, "plan", "", "declared rollback plan")

	evolveReviewCmd.Flags().BoolVar(&evolveApprove, "approve", false, "approve the request")
	evolveReviewCmd.Flags().BoolVar(&evolveReject, "reject", false, "reject the request")

	evolveCmd.AddCommand(evolveRequestCmd)
	evolveCmd.AddCommand(evolveReviewCmd)
	evolveCmd.AddCommand(evolveApplyCmd)
	evolveCmd.AddCommand(evolveListCmd)
	RootCmd.AddCommand(evolveCmd)
}
