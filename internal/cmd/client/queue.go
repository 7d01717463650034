package client

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

// NewQueueCommand builds the `queue` command group: a thin HTTP client over
// the OperationFacade routes exposed by internal/server/http.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "queue",
		Short: "Queue operations (add/get/ack/abort/flush/delete/stats)",
	}
	root.AddCommand(newQueueAddCommand(baseURL))
	root.AddCommand(newQueueGetCommand(baseURL))
	root.AddCommand(newQueueAckCommand(baseURL))
	root.AddCommand(newQueueAbortCommand(baseURL))
	root.AddCommand(newQueueFlushCommand(baseURL))
	root.AddCommand(newQueueDeleteCommand(baseURL))
	root.AddCommand(newQueueStatsCommand(baseURL))
	return root
}

type addResp struct {
	OK bool `json:"ok"`
}

func newQueueAddCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item to a queue (or alias)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _ := cmd.Flags().GetString("data")
			expiresAtMs, _ := cmd.Flags().GetInt64("expires-at-ms")
			var resp addResp
			body := map[string]any{"data": base64.StdEncoding.EncodeToString([]byte(data)), "expiresAtMs": expiresAtMs}
			if err := postJSON(baseURL(), "/v1/queues/"+args[0]+"/add", body, &resp); err != nil {
				return err
			}
			fmt.Println("ok:", resp.OK)
			return nil
		},
	}
	cmd.Flags().String("data", "", "item payload")
	cmd.Flags().Int64("expires-at-ms", 0, "absolute expiry in unix milliseconds (0 = queue default)")
	return cmd
}

type getResp struct {
	Found       bool   `json:"found"`
	Data        []byte `json:"data"`
	AddedAtMs   int64  `json:"addedAtMs"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
	Xid         string `json:"xid"`
}

func newQueueGetCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Remove (or peek) the next item from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waitMs, _ := cmd.Flags().GetInt64("wait-ms")
			transactional, _ := cmd.Flags().GetBool("transactional")
			peek, _ := cmd.Flags().GetBool("peek")
			var resp getResp
			body := map[string]any{"waitMs": waitMs, "transactional": transactional, "peek": peek}
			if err := postJSON(baseURL(), "/v1/queues/"+args[0]+"/get", body, &resp); err != nil {
				return err
			}
			if !resp.Found {
				fmt.Println("(empty)")
				return nil
			}
			fmt.Printf("data=%q addedAtMs=%d expiresAtMs=%d", string(resp.Data), resp.AddedAtMs, resp.ExpiresAtMs)
			if resp.Xid != "" {
				fmt.Printf(" xid=%s", resp.Xid)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().Int64("wait-ms", 0, "block up to this many milliseconds for an item")
	cmd.Flags().Bool("transactional", false, "reserve the item instead of deleting it immediately")
	cmd.Flags().Bool("peek", false, "read without removing")
	return cmd
}

func newQueueAckCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ack <name> <xid>",
		Short: "Confirm (permanently remove) a reserved item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(baseURL(), "/v1/queues/"+args[0]+"/ack", map[string]string{"xid": args[1]}, nil)
		},
	}
	return cmd
}

func newQueueAbortCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort <name> <xid>",
		Short: "Return a reserved item to the head of the queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(baseURL(), "/v1/queues/"+args[0]+"/abort", map[string]string{"xid": args[1]}, nil)
		},
	}
	return cmd
}

func newQueueFlushCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush <name>",
		Short: "Discard every item currently in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(baseURL(), "/v1/queues/"+args[0]+"/flush", nil, nil)
		},
	}
	return cmd
}

func newQueueDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Close and destroy a queue's journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteReq(baseURL(), "/v1/queues/"+args[0])
		},
	}
	return cmd
}

type statsResp struct {
	Found bool              `json:"found"`
	Stats map[string]string `json:"stats"`
}

func newQueueStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <name>",
		Short: "Print a queue's or alias's cumulative counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp statsResp
			if err := getJSON(baseURL(), "/v1/queues/"+args[0]+"/stats", &resp); err != nil {
				return err
			}
			if !resp.Found {
				fmt.Println("(no such queue or alias)")
				return nil
			}
			for k, v := range resp.Stats {
				fmt.Printf("%s=%s\n", k, v)
			}
			return nil
		},
	}
	return cmd
}
