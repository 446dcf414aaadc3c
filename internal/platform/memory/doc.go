// Package memory provides in-process implementations of the store interfaces.
//
// Everything kept here lives only as long as the process: a restart loses all
// tasks. Records are never evicted.
package memory
