package realtime

import "github.com/oakhurst-media/catalogbackend/models"

// Catalog change event types broadcast to clients.
const (
	EventAuthorUpdated = "author_updated"
	EventAuthorRemoved = "author_removed"
	EventItemsUpdated  = "items_updated"
)

// CatalogNotifier adapts the hub to the typed notification contract the
// services expect.
type CatalogNotifier struct {
	Hub *Hub
}

func NewCatalogNotifier(hub *Hub) *CatalogNotifier {
	return &CatalogNotifier{Hub: hub}
}

// AuthorUpdated broadcasts the author's snapshot with its current book count
func (n *CatalogNotifier) AuthorUpdated(author models.Author, bookCount int64) {
	n.Hub.Broadcast(Event{
		Type: EventAuthorUpdated,
		Payload: map[string]interface{}{
			"author":    author,
			"num_books": bookCount,
		},
	})
}

// AuthorRemoved broadcasts the removed author's last snapshot
func (n *CatalogNotifier) AuthorRemoved(author models.Author) {
	n.Hub.Broadcast(Event{
		Type:    EventAuthorRemoved,
		Payload: author,
	})
}

// ItemsUpdated broadcasts the books whose author lists changed
func (n *CatalogNotifier) ItemsUpdated(books []models.Book) {
	n.Hub.Broadcast(Event{
		Type:    EventItemsUpdated,
		Payload: books,
	})
}
