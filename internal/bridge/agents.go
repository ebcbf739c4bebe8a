package bridge

import "github.com/priority-living/pl/pkg/api"

// ListAgents queries the roster of agents bound to this bridge key. The
// false return covers transport failures and rejected credentials alike;
// an empty roster is a successful, empty slice.
func ListAgents(c *Client) ([]api.Agent, bool) {
	var resp api.AgentsResponse
	if !c.Call("bridge-poll", api.AgentsRequest{Action: "list_agents"}, &resp) {
		return nil, false
	}
	return resp.Agents, true
}
