package commands

import (
	"fmt"

	"github.com/wonny/stockout/internal/evaluation"
)

// printReport prints one metrics block
func printReport(label string, r *evaluation.Report) {
	fmt.Printf("%s metrics (%d rows, threshold %.2f)\n", label, r.Rows, r.Threshold)
	fmt.Printf("  roc_auc   %.4f\n", r.ROCAUC)
	fmt.Printf("  pr_auc    %.4f\n", r.PRAUC)
	fmt.Printf("  precision %.4f  recall %.4f  f1 %.4f\n", r.Precision, r.Recall, r.F1)
	fmt.Printf("  confusion [[%d %d] [%d %d]]\n",
		r.Confusion.TN(), r.Confusion.FP(), r.Confusion.FN(), r.Confusion.TP())
}
