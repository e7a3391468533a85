package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/hostrun/pkg/filter"
	"github.com/AlexanderGrooff/hostrun/pkg/inventory"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

var (
	inventoryFilters []string
	inventoryGroup   string
)

type hostView struct {
	Name     string                 `yaml:"name"`
	Hostname string                 `yaml:"hostname"`
	Port     int                    `yaml:"port,omitempty"`
	Username string                 `yaml:"username,omitempty"`
	Platform string                 `yaml:"platform,omitempty"`
	Groups   []string               `yaml:"groups,omitempty"`
	Data     map[string]interface{} `yaml:"data,omitempty"`
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Show the hosts of the inventory with their resolved data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := inventory.Load(cmd.Context(), cfg.Inventory)
		if err != nil {
			return err
		}
		predicates, err := parseFilters(inventoryFilters)
		if err != nil {
			return err
		}
		if inventoryGroup != "" {
			if _, err := inv.Group(inventoryGroup); err != nil {
				return err
			}
			group := inventoryGroup
			predicates = append(predicates, filter.Func(func(h *types.Host) bool {
				return h.HasParentGroup(group)
			}))
		}
		inv = inv.Filter(predicates...)

		hosts := make([]hostView, 0, inv.Len())
		for _, h := range inv.Hosts() {
			hosts = append(hosts, hostView{
				Name:     h.Name,
				Hostname: h.ResolvedHostname(),
				Port:     h.ResolvedPort(),
				Username: h.ResolvedUsername(),
				Platform: h.ResolvedPlatform(),
				Groups:   h.GroupNames,
				Data:     h.Items(),
			})
		}
		out, err := yaml.Marshal(hosts)
		if err != nil {
			return fmt.Errorf("failed to render inventory: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	inventoryCmd.Flags().StringArrayVarP(&inventoryFilters, "filter", "f", nil, "Only show hosts matching path=value, e.g. platform=eos or nested_data__a_list__contains=2")
	inventoryCmd.Flags().StringVarP(&inventoryGroup, "group", "g", "", "Only show hosts that belong to this group or one of its children")
	RootCmd.AddCommand(inventoryCmd)
}
