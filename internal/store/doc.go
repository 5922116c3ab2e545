// Package store implements the relay's hierarchical, reference-counted
// object store: tracks contain groups, groups contain subgroups, subgroups
// contain objects. Objects may be registered before their payload arrives;
// readers block on a wait-signal until the payload is delivered or the
// subgroup is capped past the requested object.
package store
