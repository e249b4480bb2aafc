package pktwire

import (
	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/orchestrate"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	"github.com/mhauser/pktwire/pkg/store/badgerstore"
)

func newPushCmd() *cobra.Command {
	var force bool
	var deleteRef string
	cmd := &cobra.Command{
		Use:   "push [REMOTE] [REFSPEC...]",
		Short: "Push local refs to a remote, creating or fast-forwarding as allowed",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := openObjectStore(cmd)
			if err != nil {
				return err
			}
			defer objects.Close()

			_, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}

			var remoteArgs []string
			if len(args) > 0 {
				remoteArgs = args[:1]
			}
			_, r, err := mustRemote(cmd, c, remoteArgs)
			if err != nil {
				return err
			}
			ep, origin, err := resolveEndpoint(r)
			if err != nil {
				return err
			}
			client, _, err := newHTTPClient(cmd)
			if err != nil {
				return err
			}

			specs := r.Push
			if len(args) > 1 {
				specs = nil
				for _, raw := range args[1:] {
					sp, err := orchestrate.ParseRefspec(raw)
					if err != nil {
						return err
					}
					specs = append(specs, sp)
				}
			}

			opts := orchestrate.DefaultOptions()
			opts.Force = force

			handler := pushHandlerFor(specs, deleteRef)
			res, err := orchestrate.UpdateAndCreate(client, ep, objects, objects, handler, badgerstore.GeneratePack, opts)
			if err != nil {
				return handleAuthError(cmd, origin, err)
			}
			for _, cr := range res.Commands {
				if cr.Error != "" {
					cmd.Printf(" ! %s  %s\n", cr.Ref, cr.Error)
				} else {
					cmd.Printf(" * %s\n", cr.Ref)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "allow non-fast-forward updates")
	cmd.Flags().StringVar(&deleteRef, "delete", "", "remote ref to delete instead of pushing")
	return cmd
}

// pushHandlerFor builds an orchestrate.PushHandler that either sends a
// single delete command (SUPPLEMENTED FEATURE 5) or maps every local ref
// through specs and pushes what changed against the remote's current
// advertisement, using +src:dst shorthand to decide forced updates.
func pushHandlerFor(specs []orchestrate.Refspec, deleteRef string) orchestrate.PushHandler {
	return func(objects store.ObjectStore, references map[string]objectid.ID, remoteRefs []protocol.RefEntry) []protocol.Command {
		if deleteRef != "" {
			for _, rr := range remoteRefs {
				if rr.Name == deleteRef {
					return []protocol.Command{{Kind: protocol.CommandDelete, Old: rr.ID, Ref: deleteRef}}
				}
			}
			return nil
		}
		remoteByName := make(map[string]objectid.ID, len(remoteRefs))
		for _, rr := range remoteRefs {
			remoteByName[rr.Name] = rr.ID
		}
		var commands []protocol.Command
		for _, sp := range specs {
			localID, ok := references[sp.Src]
			if !ok {
				continue
			}
			dst := sp.Dst
			if dst == "" {
				dst = sp.Src
			}
			oldID, exists := remoteByName[dst]
			switch {
			case !exists:
				commands = append(commands, protocol.Command{Kind: protocol.CommandCreate, New: localID, Ref: dst})
			case oldID != localID:
				commands = append(commands, protocol.Command{Kind: protocol.CommandUpdate, Old: oldID, New: localID, Ref: dst})
			}
		}
		return commands
	}
}
