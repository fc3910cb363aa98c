// Package embedded assembles an in-process write server for integration
// tests out of needlekit modules.
package embedded

import "github.com/danpasecinic/needlekit"

// Capabilities of a write server.
const (
	ConfigKey             needlekit.Key = "write.config"
	LoggerKey             needlekit.Key = "write.logger"
	MetricsKey            needlekit.Key = "write.metrics"
	RegistryKey           needlekit.Key = "write.registry"
	TransportKey          needlekit.Key = "write.transport"
	ReplicationPeersKey   needlekit.Key = "write.replication.peers"
	ReplicationServiceKey needlekit.Key = "write.replication.service"
	AdminKey              needlekit.Key = "write.admin"
	ServerKey             needlekit.Key = "write.server"
)

// WriteProfile selects the resolver defaults of a write server.
const WriteProfile needlekit.Profile = "Write"

// ExtensionContract is the contract extension providers register under to
// contribute modules to a write server.
const ExtensionContract needlekit.ExtensionContract = "write-server.extension"
