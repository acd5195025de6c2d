package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewQueueCommand constructs the `queue` command group and subcommands,
// covering both Base Queue and Request/Response Queue operations.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Distributed FIFO queue operations",
		Long: `Base Queue and Request/Response Queue operations.

Base Queue:
  offer          Append a payload to the tail of the queue
  peek           Read the head payload without removing it
  poll           Remove and return the head payload, or report empty
  take           Remove and return the head payload, blocking until one arrives
  remove         Remove and return the head payload, failing if empty
  remove-many    Delete specific named nodes (admin/cleanup)
  peek-elements  List up to N head elements matching the server's accept filter

Request/Response Queue:
  offer-wait          Submit a request and wait for its paired response
  remove-with-response  Consumer-side: answer a pulled request and delete it
  await-pending       Block until all in-flight offer-wait calls have settled
  contains-id         Check whether a request with a given correlation id is queued
  tail-id             Report the most-recently-offered live node`,
	}

	queueCmd.AddCommand(
		newQueueOfferCommand(baseURL),
		newQueuePeekCommand(baseURL),
		newQueuePollCommand(baseURL),
		newQueueTakeCommand(baseURL),
		newQueueRemoveCommand(baseURL),
		newQueueRemoveManyCommand(baseURL),
		newQueuePeekElementsCommand(baseURL),
		newQueueOfferAndWaitCommand(baseURL),
		newQueueRemoveWithResponseCommand(baseURL),
		newQueueAwaitPendingCommand(baseURL),
		newQueueContainsIDCommand(baseURL),
		newQueueTailIDCommand(baseURL),
	)

	return queueCmd
}

func newQueueOfferCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Append a payload to a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			data, _ := cmd.Flags().GetString("data")

			body := map[string]any{"queue": name, "payload": []byte(data)}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/bq/offer", body, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: offered")
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().String("data", "", "Payload data")
	return cmd
}

func printPayload(cmd *cobra.Command, found bool, payload []byte) error {
	if !found {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "empty")
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(decodedPayload(payload))
}

func newQueuePeekCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Read the head payload without removing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			waitMs, _ := cmd.Flags().GetInt64("wait-ms")

			url := fmt.Sprintf("%s/v1/bq/peek?queue=%s", baseURL(), name)
			if waitMs > 0 {
				url += fmt.Sprintf("&waitMillis=%d", waitMs)
			}
			var resp struct {
				Payload []byte `json:"payload"`
				Found   bool   `json:"found"`
			}
			if err := doJSON(cmd.Context(), "GET", url, nil, &resp); err != nil {
				return err
			}
			return printPayload(cmd, resp.Found, resp.Payload)
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().Int64("wait-ms", 0, "Block up to this many milliseconds for an element")
	return cmd
}

func newQueuePollCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Remove and return the head payload, or report empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			var resp struct {
				Payload []byte `json:"payload"`
				Found   bool   `json:"found"`
			}
			url := fmt.Sprintf("%s/v1/bq/poll?queue=%s", baseURL(), name)
			if err := doJSON(cmd.Context(), "POST", url, nil, &resp); err != nil {
				return err
			}
			return printPayload(cmd, resp.Found, resp.Payload)
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	return cmd
}

func newQueueTakeCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Remove and return the head payload, blocking until one arrives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			var resp struct {
				Payload []byte `json:"payload"`
				Found   bool   `json:"found"`
			}
			url := fmt.Sprintf("%s/v1/bq/take?queue=%s", baseURL(), name)
			if err := doJSON(cmd.Context(), "POST", url, nil, &resp); err != nil {
				return err
			}
			return printPayload(cmd, resp.Found, resp.Payload)
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	return cmd
}

func newQueueRemoveCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove and return the head payload, failing if the queue is empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			var resp struct {
				Payload []byte `json:"payload"`
				Found   bool   `json:"found"`
			}
			url := fmt.Sprintf("%s/v1/bq/remove?queue=%s", baseURL(), name)
			if err := doJSON(cmd.Context(), "POST", url, nil, &resp); err != nil {
				return err
			}
			return printPayload(cmd, resp.Found, resp.Payload)
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	return cmd
}

func newQueueRemoveManyCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-many",
		Short: "Delete specific named nodes from a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			names, _ := cmd.Flags().GetStringArray("node")
			body := map[string]any{"queue": name, "names": names}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/bq/removeMany", body, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: OK")
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().StringArray("node", []string{}, "Node short name to delete (repeat)")
	return cmd
}

func newQueuePeekElementsCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek-elements",
		Short: "List up to N head elements matching the server's accept filter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			max, _ := cmd.Flags().GetInt("max")
			waitMs, _ := cmd.Flags().GetInt64("wait-ms")

			url := fmt.Sprintf("%s/v1/bq/peekElements?queue=%s&max=%d", baseURL(), name, max)
			if waitMs > 0 {
				url += fmt.Sprintf("&waitMillis=%d", waitMs)
			}
			var elems []struct {
				Name    string `json:"name"`
				Payload []byte `json:"payload"`
			}
			if err := doJSON(cmd.Context(), "GET", url, nil, &elems); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range elems {
				out := decodedPayload(e.Payload)
				out["name"] = e.Name
				_ = enc.Encode(out)
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().Int("max", 10, "Maximum elements to return")
	cmd.Flags().Int64("wait-ms", 0, "Block up to this many milliseconds for at least one element")
	return cmd
}

func newQueueOfferAndWaitCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer-wait",
		Short: "Submit a request and wait for its paired response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			data, _ := cmd.Flags().GetString("data")
			timeoutMs, _ := cmd.Flags().GetInt64("timeout-ms")

			body := map[string]any{"queue": name, "payload": []byte(data), "timeoutMillis": timeoutMs}
			var resp struct {
				ID       string `json:"id"`
				Bytes    []byte `json:"bytes"`
				TimedOut bool   `json:"timedOut"`
			}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/rrq/offerAndWait", body, &resp); err != nil {
				return err
			}
			out := decodedPayload(resp.Bytes)
			out["id"] = resp.ID
			out["timed_out"] = resp.TimedOut
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().String("data", "", "Request payload data")
	cmd.Flags().Int64("timeout-ms", 30000, "Milliseconds to wait for a reply")
	return cmd
}

func newQueueRemoveWithResponseCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-with-response",
		Short: "Answer a pulled request node and delete it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			path, _ := cmd.Flags().GetString("request-path")
			data, _ := cmd.Flags().GetString("data")

			body := map[string]any{"queue": name, "requestPath": path, "reply": []byte(data)}
			if err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/rrq/removeWithResponse", body, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: OK")
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().String("request-path", "", "Full path of the pulled request node")
	cmd.Flags().String("data", "", "Reply payload data")
	return cmd
}

func newQueueAwaitPendingCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "await-pending",
		Short: "Block until all in-flight offer-wait calls have settled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			url := fmt.Sprintf("%s/v1/rrq/awaitPendingResponses?queue=%s", baseURL(), name)
			if err := doJSON(cmd.Context(), "POST", url, nil, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: OK")
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	return cmd
}

func newQueueContainsIDCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contains-id",
		Short: "Check whether a request with a given correlation id is queued",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			key, _ := cmd.Flags().GetString("key")
			id, _ := cmd.Flags().GetString("id")

			url := fmt.Sprintf("%s/v1/rrq/containsRequestWithId?queue=%s&key=%s&id=%s", baseURL(), name, key, id)
			var resp struct {
				Found bool `json:"found"`
			}
			if err := doJSON(cmd.Context(), "GET", url, nil, &resp); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "found:", resp.Found)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	cmd.Flags().String("key", "", "JSON envelope key to match")
	cmd.Flags().String("id", "", "Correlation id to match")
	return cmd
}

func newQueueTailIDCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-id",
		Short: "Report the most-recently-offered live node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			url := fmt.Sprintf("%s/v1/rrq/tailId?queue=%s", baseURL(), name)
			var resp struct {
				Path  string `json:"path"`
				Found bool   `json:"found"`
			}
			if err := doJSON(cmd.Context(), "GET", url, nil, &resp); err != nil {
				return err
			}
			if !resp.Found {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "empty")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "path:", resp.Path)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Queue name")
	return cmd
}
