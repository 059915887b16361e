package model

import "time"

// Comment belongs to one content item and one user.  ParentID, when
// set, points at another comment on the same content item.
type Comment struct {
    ID          string
    ContentID   string
    ContentKind Kind
    UserID      string
    ParentID    *string
    Text        string
    CreatedOn   time.Time
    ModifiedOn  time.Time

    Username string
    AvatarID *string
}

// Like is the unique (content, user) pairing.
type Like struct {
    ID        string
    ContentID string
    UserID    string
    CreatedOn time.Time

    Username string
    AvatarID *string
}

// View records one read of a content item.  Anonymous readers have no
// UserID.
type View struct {
    ID        string
    ContentID string
    UserID    *string
    IPAddress string
    UserAgent string
    CreatedOn time.Time
}
