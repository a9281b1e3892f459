package workers

import (
	"log"
	"sync"

	"github.com/oakhurst-media/catalogbackend/imagecache"
)

// PrewarmSizes are the variant widths generated ahead of client requests.
var PrewarmSizes = []int{240, 480, 960}

type ImageJob struct {
	AuthorID  string
	ImagePath string
}

// AuthorImageProcessor pre-generates cached author image variants in the
// background so image requests after an upload are cache hits.
type AuthorImageProcessor struct {
	JobQueue chan ImageJob
	Cache    *imagecache.Cache
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewAuthorImageProcessor(cache *imagecache.Cache, queueSize, numWorkers int) *AuthorImageProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &AuthorImageProcessor{
		JobQueue: make(chan ImageJob, queueSize),
		Cache:    cache,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d author image worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (p *AuthorImageProcessor) worker(id int) {
	defer p.Wg.Done()

	log.Printf("Author image worker %d started", id)
	for {
		select {
		case job, ok := <-p.JobQueue:
			if !ok {
				log.Printf("Author image worker %d stopping: job queue closed", id)
				return
			}

			if err := p.Cache.Prewarm(job.AuthorID, job.ImagePath, PrewarmSizes); err != nil {
				log.Printf("Worker %d: ERROR prewarming image cache for author %s: %v", id, job.AuthorID, err)
			}

			p.Mutex.Lock()
			delete(p.Pending, job.AuthorID)
			p.Mutex.Unlock()

		case <-p.StopChan:
			log.Printf("Author image worker %d stopping: stop signal received", id)
			return
		}
	}
}

// Enqueue schedules a prewarm for the author's image unless one is already
// pending. Returns false when the job was dropped (duplicate or full queue).
func (p *AuthorImageProcessor) Enqueue(authorID, imagePath string) bool {
	p.Mutex.Lock()
	if p.Pending[authorID] {
		p.Mutex.Unlock()
		return false
	}
	p.Pending[authorID] = true
	p.Mutex.Unlock()

	select {
	case p.JobQueue <- ImageJob{AuthorID: authorID, ImagePath: imagePath}:
		return true
	default:
		p.Mutex.Lock()
		delete(p.Pending, authorID)
		p.Mutex.Unlock()
		log.Printf("Author image queue full, dropping prewarm for author %s", authorID)
		return false
	}
}

// Stop signals all workers to exit and waits for them
func (p *AuthorImageProcessor) Stop() {
	close(p.StopChan)
	p.Wg.Wait()
}
