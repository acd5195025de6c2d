// Package coord defines the contract zkq needs from a hierarchical
// coordination service (ZooKeeper and compatible systems): ordered
// ephemeral/persistent nodes, child-list and data watches, optimistic
// versioning, and an atomic multi-op. The base and request/response queues
// are written against this interface only; ZKConn (zkclient.go, in this
// package) supplies the production adapter over github.com/go-zookeeper/zk,
// and internal/coord/coordtest supplies an in-memory double for tests.
//
// The contract intentionally stays small: it is the boundary the spec calls
// "external collaborator" and assumes given. Anything a real coordination
// client does beyond this (auth, multi-tenancy, ACL management) stays out of
// scope.
package coord
