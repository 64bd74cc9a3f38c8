/*
Package ports defines the driven ports (interfaces) of the arbor engine.

The graphics engine itself is an external collaborator: arbor only consumes the
contracts below, so any engine (or the in-memory reference in adapters/memory) can be
bound to a declarative node tree.

# Key Interfaces

  - Object: observable property bag with an identifier and owner back-references.
  - Collection: ordered list of Objects emitting add/remove events.
  - Feature / Geometry: the shapes understood by the GeoJSON interchange layer.
  - Factory: constructors for the above, used when reading interchange payloads.
  - SnapshotStore: persistence for feature collections (memory, Redis).
  - DistributedLocker: coordination of snapshot writers across replicas.
*/
package ports
