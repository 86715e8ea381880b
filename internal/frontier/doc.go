// Package frontier holds the crawl's pending work: a blocking queue of
// targets and the set of URLs already claimed. A URL is claimed at
// discovery time, before entering the queue, so link cycles and repeated
// references collapse to exactly one fetch. The queue also answers the
// termination question: a crawl is done when the queue is empty and no
// worker still holds a target that could discover more.
package frontier
