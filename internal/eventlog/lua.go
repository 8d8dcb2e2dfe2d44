package eventlog

const (
	luaAppendEvents = `
		-- Atomically append a batch of events and publish each to the
		-- outbound stream. Either the whole batch lands or none of it does.
		-- KEYS[1] = event list key
		-- KEYS[2] = stream key
		-- ARGV[1] = expected sequence (current list length)
		-- ARGV[2..N] = event data (JSON)
		-- Returns: {1, newLength} on success,
		--          {0, currentLength, newEvents...} on conflict

		local currentLen = redis.call('LLEN', KEYS[1])
		local expected = tonumber(ARGV[1])

		if expected ~= currentLen then
			if expected < currentLen then
				local newEvents = redis.call('LRANGE', KEYS[1], expected, -1)
				local res = {0, currentLen}
				for _, ev in ipairs(newEvents) do
					table.insert(res, ev)
				end
				return res
			end
			return {0, currentLen}
		end

		for i = 2, #ARGV do
			redis.call('RPUSH', KEYS[1], ARGV[i])
			redis.call('XADD', KEYS[2], '*', 'payload', ARGV[i])
		end

		return {1, redis.call('LLEN', KEYS[1])}
		`

	luaGetEvents = `
		-- Get events from list starting at a given sequence
		-- KEYS[1] = event list key
		-- ARGV[1] = starting sequence (0-based)

		local fromSeq = tonumber(ARGV[1])
		return redis.call('LRANGE', KEYS[1], fromSeq, -1)
		`

	luaPutSnapshot = `
		-- Atomically save snapshot only if new sequence is greater than stored
		-- KEYS[1] = snapshot key
		-- KEYS[2] = snapshot sequence key
		-- ARGV[1] = snapshot data
		-- ARGV[2] = snapshot sequence

		local newSeq = tonumber(ARGV[2])
		local storedSeqStr = redis.call('GET', KEYS[2])

		if storedSeqStr then
			local storedSeq = tonumber(storedSeqStr)
			if newSeq <= storedSeq then
				return 1
			end
		end

		redis.call('SET', KEYS[1], ARGV[1])
		redis.call('SET', KEYS[2], newSeq)
		return 1
		`

	luaGetSnapshot = `
		-- Atomically get snapshot and events after snapshot sequence
		-- KEYS[1] = snapshot key
		-- KEYS[2] = snapshot sequence key
		-- KEYS[3] = event list key
		-- Returns: {snapshot_data, snapshot_seq, newEvents...}

		local snapData = redis.call('GET', KEYS[1])
		local snapSeq = tonumber(redis.call('GET', KEYS[2]) or "0")
		local newEvents = redis.call('LRANGE', KEYS[3], snapSeq, -1)
		local res = {snapData or "", snapSeq}
		for _, ev in ipairs(newEvents) do
			table.insert(res, ev)
		end
		return res
		`

	luaConsumeEntry = `
		-- Atomically acknowledge and delete a stream entry
		-- KEYS[1] = stream key
		-- ARGV[1] = consumer group
		-- ARGV[2] = stream entry ID
		-- Returns: {ackCount, delCount}

		local acked = redis.call('XACK', KEYS[1], ARGV[1], ARGV[2])
		local deleted = redis.call('XDEL', KEYS[1], ARGV[2])
		return {acked, deleted}
		`

	luaOffloadDelete = `
		-- Delete an aggregate's artifacts only if its log has not advanced
		-- since it was read for offloading
		-- KEYS[1] = snapshot key
		-- KEYS[2] = snapshot sequence key
		-- KEYS[3] = event list key
		-- ARGV[1] = expected event count
		-- Returns: 1 when deleted, 0 when the log moved underneath us

		local expected = tonumber(ARGV[1])
		if redis.call('LLEN', KEYS[3]) ~= expected then
			return 0
		end
		redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
		return 1
		`
)
