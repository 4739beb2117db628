package deployer

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/pipeline"
)

func renderTable(w io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

func WriteDeployResult(w io.Writer, res *pipeline.DeployResult, explorerURL string) {
	rows := [][]string{
		{"Account", res.Address.Hex()},
		{"Transaction", res.TxHash.Hex()},
		{"Block", fmt.Sprint(res.BlockNumber)},
		{"Deployer nonce", fmt.Sprint(res.Nonce)},
	}
	if explorerURL != "" {
		rows = append(rows, []string{"Explorer", explorerURL})
	}
	renderTable(w, rows)
}

func WriteApprovalResult(w io.Writer, res *ApprovalResult) {
	allowance := "unknown"
	if res.Allowance != nil {
		allowance = res.Allowance.String()
	}
	rows := [][]string{
		{"Transaction", res.TxHash.Hex()},
		{"Block", fmt.Sprint(res.BlockNumber)},
		{"Status", res.Status},
		{"Nonce before", fmt.Sprint(res.NonceBefore)},
		{"Nonce after", fmt.Sprint(res.NonceAfter)},
		{"Allowance", allowance},
	}
	if res.ExplorerURL != "" {
		rows = append(rows, []string{"Explorer", res.ExplorerURL})
	}
	renderTable(w, rows)
}
