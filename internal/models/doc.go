// Package models defines the domain types shared across spotility.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): lightweight structs mapped from the Spotify Web API
//   - [Track] : Song metadata
//   - [SavedTrack] : A liked song with the time it was liked
//   - [Playlist] : Playlist metadata
//
// 2. Persistent Entities
//   - [Rating] : A user-assigned score for a track, keyed by track ID in a rating store
package models
