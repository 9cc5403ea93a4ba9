package bufferpool

// circularListNode is a node in the circular list used by the clock replacer.
// The ref bit is the clock reference mark.
type circularListNode struct {
	key  FrameID
	ref  bool
	prev *circularListNode
	next *circularListNode
}

// circularList is a fixed-capacity circular doubly linked list keyed by
// frame id.
type circularList struct {
	head     *circularListNode
	tail     *circularListNode
	size     int
	capacity int
	index    map[FrameID]*circularListNode
}

func newCircularList(capacity int) *circularList {
	return &circularList{
		capacity: capacity,
		index:    make(map[FrameID]*circularListNode),
	}
}

func (c *circularList) find(key FrameID) *circularListNode {
	return c.index[key]
}

func (c *circularList) hasKey(key FrameID) bool {
	_, ok := c.index[key]
	return ok
}

func (c *circularList) insert(key FrameID, ref bool) bool {
	if c.size == c.capacity {
		return false
	}
	if node, ok := c.index[key]; ok {
		node.ref = ref
		return true
	}

	node := &circularListNode{key: key, ref: ref}
	if c.size == 0 {
		node.next = node
		node.prev = node
		c.head = node
		c.tail = node
	} else {
		node.next = c.head
		node.prev = c.tail
		c.tail.next = node
		c.head.prev = node
		c.tail = node
	}
	c.index[key] = node
	c.size++
	return true
}

func (c *circularList) remove(key FrameID) {
	node, ok := c.index[key]
	if !ok {
		return
	}
	if c.size == 1 {
		c.head = nil
		c.tail = nil
	} else {
		node.prev.next = node.next
		node.next.prev = node.prev
		if node == c.head {
			c.head = node.next
		}
		if node == c.tail {
			c.tail = node.prev
		}
	}
	delete(c.index, key)
	c.size--
}
