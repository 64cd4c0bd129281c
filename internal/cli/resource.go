package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mudsync/internal/resource"
)

// ResourceReport is the decoded and encoded form of one resource ID.
type ResourceReport struct {
	ID        string `json:"resource_id"`
	Type      string `json:"type"`
	Tag       string `json:"tag"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (r ResourceReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:        %s\n", r.ID)
	fmt.Fprintf(&b, "type:      %s (%s)\n", r.Type, r.Tag)
	fmt.Fprintf(&b, "namespace: %s\n", r.Namespace)
	fmt.Fprintf(&b, "name:      %s\n", r.Name)
	return b.String()
}

func reportOf(res resource.Resource) (ResourceReport, error) {
	id, err := res.ID()
	if err != nil {
		return ResourceReport{}, err
	}
	return ResourceReport{
		ID:        id.Hex(),
		Type:      string(res.Type),
		Tag:       res.Type.Tag(),
		Namespace: "0x" + hex.EncodeToString(res.Namespace[:]),
		Name:      res.Name,
	}, nil
}

// NewResourceCommand creates the resource command and its encode and
// decode subcommands.
func NewResourceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Encode and decode resource IDs",
	}
	cmd.AddCommand(newResourceEncodeCommand(rootOpts))
	cmd.AddCommand(newResourceDecodeCommand(rootOpts))
	return cmd
}

func newResourceEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	var typ, namespace, name string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a resource ID from its type, namespace and name",
		Long: `Build a 32-byte resource ID. The type is a name (table) or a tag (tb).
The namespace is 0x-prefixed hex or an ASCII label.

Example:
  mudsync resource encode --type tb --namespace 0x0000000000000000000000000001 --name Position`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resource.ParseType(typ)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid type", err)
			}
			ns, err := resource.ParseNamespace(namespace)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid namespace", err)
			}
			id, err := resource.Encode(t, ns[:], name)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode resource", err)
			}
			res, err := resource.Decode(id[:])
			if err != nil {
				return err
			}
			report, err := reportOf(res)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Success(report)
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(resource.Table), "resource type name or tag")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace, hex or label")
	cmd.Flags().StringVar(&name, "name", "", "resource name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newResourceDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <resource-id>",
		Short: "Split a hex resource ID into type, namespace and name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resource.ParseHex(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid resource id", err)
			}
			report, err := reportOf(res)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Success(report)
		},
	}
}
