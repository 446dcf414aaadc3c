// Package compute talks to the external meal-plan compute service.
//
// A run submits the request to the service's start endpoint. The service
// either answers with the finished result or defers the work and hands back a
// job id plus a status path, which the client polls at a fixed interval until
// the job reaches a terminal state or the attempt budget runs out.
//
// Only network calls and the progress callback are performed; recording the
// outcome is left to the caller.
package compute
