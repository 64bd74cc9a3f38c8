/*
Package snapshot orchestrates access to stored feature snapshots.

Operations on one key are serialized in process with reference counted locks and,
when a distributed locker is configured, across replicas sharing the store.
*/
package snapshot
