// Package models defines the club's domain records and the snapshot that
// carries them between devices.
//
// # Records
//
//   - Member: a roster entry with handicap and annual fee target
//   - Outing: a scheduled round with participants, tee groups and meal plans
//   - RoundScore: one member's gross strokes for an outing (or an external round)
//   - FeeRecord: a paid or unpaid ledger line attributed to a member
//
// Records reference each other by opaque string identifiers. Deleting a
// member does not cascade, so scores and fees may hold identifiers that no
// longer resolve; lookups treat that as an unknown member, never an error.
//
// # Snapshots
//
// Snapshot is the unit of export, import, sharing and sync. It is always
// complete on the way out. PartialSnapshot is the input side of an import:
// each field is independently optional and absent fields leave local data
// untouched.
//
// # Participants and groups
//
// An outing keeps its participant list and its groups' member lists
// independently. Toggling participation does not touch groups and editing a
// group does not touch participants. A member can therefore be grouped
// without being marked as a participant; views that need a combined roster
// use Outing.Roster.
package models
