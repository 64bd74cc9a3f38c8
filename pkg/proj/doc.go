/*
Package proj transforms coordinates between the view (rendering) projection and the
data projection exposed to users.

Every transform rounds its output to a fixed number of decimals (geom.DefaultPrecision
unless told otherwise). The rounding is what lets round-tripped values compare equal,
which the synchronization bridge relies on to stop propagating a value both sides
already hold.

EPSG:4326 and EPSG:3857 (with their usual aliases) are registered by default; other
projections can be added with Register.
*/
package proj
