// Package bridge defines the shared data model for discovered bridge
// advertisements.
//
// A bridge announces itself over DNS-SD (_openclaw._tcp) in one or more
// domains. The advertisement carries TXT metadata describing how the
// bridge can be reached:
//
//	displayName  user-facing bridge name (preferred over instance name)
//	lanHost      LAN hostname of the bridge machine
//	tailnetDns   tailnet DNS name, if the bridge is on a tailnet
//	gatewayPort  control gateway port
//	bridgePort   bridge RPC port
//	canvasPort   canvas service port
//	cliPath      path of the CLI binary on the bridge machine
//	sshPort      SSH port (defaults to 22 when absent or unparsable)
//
// Each advertisement maps to an Endpoint whose StableID is derived from
// the service endpoint itself (instance + service type + domain), never
// from mutable display fields. Renaming a bridge therefore does not
// change its identity.
package bridge
