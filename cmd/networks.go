package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List networks and where the Bean contract is deployed",
	RunE: func(cmd *cobra.Command, args []string) error {
		contracts, err := contract.LoadConfigs(cfg.ContractsPath())
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Name", Width: 10},
			{Title: "Network", Width: 16},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 9},
			{Title: "Bean contract", Width: 44},
		})
		reg := chain.NewRegistry()
		for _, c := range reg.All() {
			mark := ""
			if c.ChainID == cfg.ChainID {
				mark = "▸"
			}
			addr := "—"
			if cc, err := contracts.For(c.ChainID); err == nil && c.Accepted() {
				addr = cc.Address
			}
			t.AddRow(ui.Row{mark, c.Name, c.DisplayName, strconv.FormatInt(c.ChainID, 10), c.NativeCurrency, addr}, mark != "")
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		var accepted []string
		for _, id := range contracts.ChainIDs() {
			if c, err := reg.GetByChainID(id); err == nil && c.Accepted() {
				accepted = append(accepted, c.DisplayName)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Purchases are accepted on "+strings.Join(accepted, ", ")+"."))
		return nil
	},
}

var networksUseCmd = &cobra.Command{
	Use:   "use <name|chain-id>",
	Short: "Set the network beancli connects to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := lookupChain(args[0])
		if err != nil {
			return err
		}
		cfg.ChainID = c.ChainID
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Network set to "+ui.ChainName(c.DisplayName)))
		if !c.Accepted() {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("Bean purchases are not supported on "+c.DisplayName))
		}
		return nil
	},
}

func lookupChain(arg string) (*chain.Chain, error) {
	reg := chain.NewRegistry()
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return reg.GetByChainID(id)
	}
	c, err := reg.GetByName(strings.ToLower(arg))
	if err != nil {
		return nil, fmt.Errorf("unknown network %q, see `beancli networks`", arg)
	}
	return c, nil
}

func init() {
	networksCmd.AddCommand(networksUseCmd)
}
